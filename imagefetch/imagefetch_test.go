package imagefetch_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AstreaTSS/Cherub/imagefetch"
	"github.com/AstreaTSS/Cherub/usererr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   imagefetch.Format
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0xFF, 0xFF, 0xFF, 0xFF}, imagefetch.PNG},
		{"png short", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, imagefetch.PNG},
		{"jfif full", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}, imagefetch.JPEG},
		{"exif", append([]byte{0xFF, 0xD8, 0xFF, 0xE1, 0xAA, 0xBB}, []byte("Exif\x00\x00")...), imagefetch.JPEG},
		{"generic soi", []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, imagefetch.JPEG},
		{"jfif at offset 6", append([]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, []byte("JFIF09")...), imagefetch.JPEG},
		{"exif at offset 6", append([]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, []byte("Exif09")...), imagefetch.JPEG},
		{"gif87a", []byte("GIF87a-and-some-trailing-data"), imagefetch.GIF},
		{"gif89a", []byte("GIF89a\x01\x02\x03"), imagefetch.GIF},
		{"gif bad version", []byte("GIF88a"), imagefetch.Unknown},
		{"webp", []byte("RIFF\x12\x34\x56\x78WEBPVP8 "), imagefetch.WEBP},
		{"riff not webp", []byte("RIFF\x12\x34\x56\x78WAVEfmt "), imagefetch.Unknown},
		{"empty", nil, imagefetch.Unknown},
		{"short garbage", []byte{0x00, 0x01}, imagefetch.Unknown},
		{"text", []byte("<!DOCTYPE ht"), imagefetch.Unknown},
	}
	for _, test := range tests {
		if got := imagefetch.Classify(test.prefix); got != test.want {
			t.Errorf("%s: Classify = %v, want %v", test.name, got, test.want)
		}
	}
}

func serveBytes(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchBounded(t *testing.T) {
	ctx := context.Background()
	payload := bytes.Repeat([]byte{0x42}, 100)

	// Fits under either policy.
	srv := serveBytes(t, http.StatusOK, payload[:99])
	got, err := imagefetch.FetchBounded(ctx, srv.URL, 100, true)
	if err != nil {
		t.Fatalf("99 bytes vs limit 100: %v", err)
	}
	if len(got) != 99 {
		t.Errorf("returned %d bytes, want 99", len(got))
	}

	// Exactly the limit: fine when only strictly-larger overflows...
	srv = serveBytes(t, http.StatusOK, payload)
	got, err = imagefetch.FetchBounded(ctx, srv.URL, 100, false)
	if err != nil {
		t.Fatalf("100 bytes vs limit 100 (reject-over): %v", err)
	}
	if len(got) != 100 {
		t.Errorf("returned %d bytes, want 100", len(got))
	}
	// ...but an overflow under reject-at-or-over.
	_, err = imagefetch.FetchBounded(ctx, srv.URL, 100, true)
	if usererr.KindOf(err) != usererr.ResourceTooLarge {
		t.Errorf("100 bytes vs limit 100 (reject-at-or-over): err = %v, want ResourceTooLarge", err)
	}

	// Strictly over fails either way.
	srv = serveBytes(t, http.StatusOK, append(payload, 0x42))
	_, err = imagefetch.FetchBounded(ctx, srv.URL, 100, false)
	if usererr.KindOf(err) != usererr.ResourceTooLarge {
		t.Errorf("101 bytes vs limit 100: err = %v, want ResourceTooLarge", err)
	}

	// Non-success status.
	srv = serveBytes(t, http.StatusNotFound, nil)
	_, err = imagefetch.FetchBounded(ctx, srv.URL, 100, false)
	if usererr.KindOf(err) != usererr.UnreachableResource {
		t.Errorf("404: err = %v, want UnreachableResource", err)
	}
}

func TestSniffURL(t *testing.T) {
	ctx := context.Background()
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{1}, 100)...)

	srv := serveBytes(t, http.StatusOK, png)
	format, err := imagefetch.SniffURL(ctx, srv.URL)
	if err != nil || format != imagefetch.PNG {
		t.Errorf("SniffURL = %v, %v, want PNG, nil", format, err)
	}

	srv = serveBytes(t, http.StatusForbidden, png)
	format, err = imagefetch.SniffURL(ctx, srv.URL)
	if err != nil || format != imagefetch.Unknown {
		t.Errorf("SniffURL after 403 = %v, %v, want Unknown, nil", format, err)
	}

	// Resources shorter than the sniff window must not error.
	srv = serveBytes(t, http.StatusOK, []byte("GIF89a"))
	format, err = imagefetch.SniffURL(ctx, srv.URL)
	if err != nil || format != imagefetch.GIF {
		t.Errorf("SniffURL of short gif = %v, %v, want GIF, nil", format, err)
	}
}

func TestResolveImage(t *testing.T) {
	ctx := context.Background()

	if url, format := imagefetch.ResolveImage(ctx, "not a url at all"); url != "" || format != imagefetch.Unknown {
		t.Errorf("malformed url resolved to %q, %v", url, format)
	}
	if url, format := imagefetch.ResolveImage(ctx, "http://127.0.0.1:1/nope"); url != "" || format != imagefetch.Unknown {
		t.Errorf("unreachable url resolved to %q, %v", url, format)
	}

	srv := serveBytes(t, http.StatusOK, []byte("GIF89a\x00\x00\x00\x00\x00\x00"))
	url, format := imagefetch.ResolveImage(ctx, srv.URL)
	if url != srv.URL || format != imagefetch.GIF {
		t.Errorf("ResolveImage = %q, %v, want %q, GIF", url, format, srv.URL)
	}

	srv = serveBytes(t, http.StatusOK, []byte("just some html"))
	if url, format := imagefetch.ResolveImage(ctx, srv.URL); url != "" || format != imagefetch.Unknown {
		t.Errorf("non-image resolved to %q, %v", url, format)
	}
}

func frame() *image.Paletted {
	return image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
}

func TestAnimatedGIF(t *testing.T) {
	single := &bytes.Buffer{}
	if err := gif.EncodeAll(single, &gif.GIF{Image: []*image.Paletted{frame()}, Delay: []int{0}}); err != nil {
		t.Fatal(err)
	}
	animated := &bytes.Buffer{}
	if err := gif.EncodeAll(animated, &gif.GIF{Image: []*image.Paletted{frame(), frame()}, Delay: []int{10, 10}}); err != nil {
		t.Fatal(err)
	}

	if got, err := imagefetch.AnimatedGIF(single.Bytes()); err != nil || got {
		t.Errorf("single frame: got %t, %v, want false, nil", got, err)
	}
	if got, err := imagefetch.AnimatedGIF(animated.Bytes()); err != nil || !got {
		t.Errorf("two frames: got %t, %v, want true, nil", got, err)
	}
	if _, err := imagefetch.AnimatedGIF([]byte("GIF89a but truncated")); err == nil {
		t.Error("truncated gif should fail to decode")
	}
}
