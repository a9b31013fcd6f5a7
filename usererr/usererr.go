// Package usererr holds the closed set of user-facing command failures.
// Anything not representable here is an internal fault and gets routed to
// the owner channel instead of the invoking user.
package usererr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	// Internal is the zero value: not a user-facing failure.
	Internal Kind = iota
	NotAnEmoji
	NoEmojisFound
	ResourceTooLarge
	UnreachableResource
	InvalidImage
	QuotaExceeded
	DuplicateEmoji
	PlatformRejected
	PermissionDenied
)

var kindNames = map[Kind]string{
	Internal:            "internal",
	NotAnEmoji:          "not-an-emoji",
	NoEmojisFound:       "no-emojis-found",
	ResourceTooLarge:    "resource-too-large",
	UnreachableResource: "unreachable-resource",
	InvalidImage:        "invalid-image",
	QuotaExceeded:       "quota-exceeded",
	DuplicateEmoji:      "duplicate-emoji",
	PlatformRejected:    "platform-rejected",
	PermissionDenied:    "permission-denied",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a validation style failure whose message is meant to be shown
// verbatim to the invoking user.
type Error struct {
	What Kind
	Msg  string
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{What: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Msg
}

// KindOf unwraps err and returns its taxonomy kind, or Internal when the
// error isn't one of ours.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.What
	}
	return Internal
}

// IsUser reports whether the error should be shown to the invoking user
// rather than dumped to the owner channel.
func IsUser(err error) bool {
	return KindOf(err) != Internal
}
