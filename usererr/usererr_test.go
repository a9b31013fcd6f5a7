package usererr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/AstreaTSS/Cherub/usererr"
)

func TestKindOf(t *testing.T) {
	err := usererr.New(usererr.NotAnEmoji, "couldn't convert %q to a Discord emoji", ":notreal:")
	if got := usererr.KindOf(err); got != usererr.NotAnEmoji {
		t.Errorf("KindOf = %v, want %v", got, usererr.NotAnEmoji)
	}
	if !usererr.IsUser(err) {
		t.Error("IsUser should be true for a taxonomy error")
	}
	want := `couldn't convert ":notreal:" to a Discord emoji`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := usererr.New(usererr.ResourceTooLarge, "too big")
	wrapped := fmt.Errorf("fetching payload: %w", inner)
	if got := usererr.KindOf(wrapped); got != usererr.ResourceTooLarge {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, usererr.ResourceTooLarge)
	}
}

func TestKindOfInternal(t *testing.T) {
	err := errors.New("something blew up")
	if got := usererr.KindOf(err); got != usererr.Internal {
		t.Errorf("KindOf = %v, want Internal", got)
	}
	if usererr.IsUser(err) {
		t.Error("IsUser should be false for a plain error")
	}
	if usererr.IsUser(nil) {
		t.Error("IsUser(nil) should be false")
	}
}
