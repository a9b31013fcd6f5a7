// Package imagefetch classifies remote resources as images by sniffing their
// leading bytes and downloads them under a hard size ceiling.
package imagefetch

import (
	"bytes"
	"context"
	"errors"
	"image/gif"
	"io"
	"net/http"
	"net/url"
	"time"

	"fortio.org/log"
	"fortio.org/safecast"
	"github.com/dustin/go-humanize"

	"github.com/AstreaTSS/Cherub/usererr"
)

// Format is the sniffed image format. Unknown is terminal: callers reject
// the resource instead of guessing.
type Format uint8

const (
	Unknown Format = iota
	PNG
	JPEG
	GIF
	WEBP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpg"
	case GIF:
		return "gif"
	case WEBP:
		return "webp"
	default:
		return "unknown"
	}
}

// sniffLen is all Classify ever needs, regardless of resource size.
const sniffLen = 12

var (
	pngSig  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jfifSig = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
	exifPre = []byte{0xFF, 0xD8, 0xFF, 0xE1}
	exifTag = []byte("Exif\x00\x00")
	soiSig  = []byte{0xFF, 0xD8, 0xFF}
	gifSig  = []byte("GIF8")
	riffSig = []byte("RIFF")
	webpSig = []byte("WEBP")
)

func match(data []byte, off int, sig []byte) bool {
	if len(data) < off+len(sig) {
		return false
	}
	return bytes.Equal(data[off:off+len(sig)], sig)
}

// Classify inspects the first bytes of a resource. Inputs shorter than 12
// bytes are fine; missing bytes simply don't match.
func Classify(prefix []byte) Format {
	if match(prefix, 0, pngSig) {
		return PNG
	}
	// JPEG has accumulated several overlapping signatures in the wild; all
	// are kept so unusual encoders keep working.
	switch {
	case match(prefix, 0, jfifSig):
		return JPEG
	case match(prefix, 0, exifPre) && match(prefix, 6, exifTag):
		return JPEG
	case match(prefix, 0, soiSig):
		return JPEG
	case match(prefix, 6, []byte("JFIF")) || match(prefix, 6, []byte("Exif")):
		return JPEG
	}
	if match(prefix, 0, gifSig) && (match(prefix, 4, []byte("7a")) || match(prefix, 4, []byte("9a"))) {
		return GIF
	}
	// RIFF container with a WEBP chunk; bytes 4-7 are the size, ignored.
	if match(prefix, 0, riffSig) && match(prefix, 8, webpSig) {
		return WEBP
	}
	return Unknown
}

// Client is used for every remote read. Overridable in tests.
var Client = &http.Client{Timeout: 2 * time.Minute}

// FetchBounded downloads url, failing with a ResourceTooLarge user error if
// the resource doesn't fit. With rejectAtLimit false a resource of exactly
// limit bytes is fine (only strictly larger ones fail); with it true exactly
// limit bytes is already an overflow. Never buffers more than limit+1 bytes.
func FetchBounded(ctx context.Context, rawURL string, limit int64, rejectAtLimit bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, usererr.New(usererr.UnreachableResource, "I can't get this file/URL!")
	}
	want := limit + 1
	if rejectAtLimit {
		want = limit
	}
	buf := make([]byte, safecast.MustConvert[int](want))
	n, err := io.ReadFull(resp.Body, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		// Transfer ended before the ceiling: the resource fits.
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	size := humanize.IBytes(safecast.MustConvert[uint64](limit))
	if rejectAtLimit {
		return nil, usererr.New(usererr.ResourceTooLarge, "The file/URL given is at or over %s!", size)
	}
	return nil, usererr.New(usererr.ResourceTooLarge, "The file/URL given is over %s!", size)
}

// SniffURL reads just enough of url to classify it. A non-success status is
// reported as Unknown rather than an error; callers treat that as "not an
// image" at resolve time.
func SniffURL(ctx context.Context, rawURL string) (Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Unknown, err
	}
	resp, err := Client.Do(req)
	if err != nil {
		return Unknown, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Unknown, nil
	}
	prefix := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, err
	}
	return Classify(prefix[:n]), nil
}

// ResolveImage checks whether url points at one of the known raster formats.
// Malformed or unreachable URLs come back as ("", Unknown), never an error.
func ResolveImage(ctx context.Context, rawURL string) (string, Format) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || u.Host == "" {
		return "", Unknown
	}
	format, err := SniffURL(ctx, rawURL)
	if err != nil {
		log.S(log.Verbose, "sniff failed, treating as non-image",
			log.Any("url", rawURL), log.Any("err", err))
		return "", Unknown
	}
	if format == Unknown {
		return "", Unknown
	}
	return rawURL, format
}

// AnimatedGIF decodes data far enough to tell whether the GIF has more than
// one frame.
func AnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}
