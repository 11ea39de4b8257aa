// Package source reads Easytrieve sources from disk and decodes them into
// UTF-8 text.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/jward/eztscan/internal/store"
)

// ErrUnsupportedEncoding is returned for a charset name with no decoder.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// File is the decoded content of one source file.
type File struct {
	Path     string
	Text     string
	Hash     string // of the raw bytes
	Encoding string // the charset actually used
}

// Reader decodes files with a configured charset.
type Reader struct {
	charset string
	logger  *slog.Logger
}

// NewReader returns a reader for the IANA charset name, e.g. "UTF-8",
// "IBM037" or "ISO-8859-1". An empty name means UTF-8.
func NewReader(charset string, logger *slog.Logger) *Reader {
	if charset == "" {
		charset = "UTF-8"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{charset: charset, logger: logger}
}

// Lookup returns the decoder registered for an IANA charset name.
func Lookup(charset string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnsupportedEncoding, charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedEncoding, charset)
	}
	return enc, nil
}

// Read loads and decodes path. When the configured charset is unknown or
// cannot decode the content, it retries once as UTF-8, replacing invalid
// bytes. I/O errors are returned as is.
func (r *Reader) Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f := &File{Path: path, Hash: store.ComputeFileHash(data)}

	text, err := decode(r.charset, data)
	if err == nil {
		f.Text, f.Encoding = text, r.charset
		return f, nil
	}
	r.logger.Warn("decoding failed, retrying as UTF-8", "path", path, "encoding", r.charset, "error", err)

	utf8, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s as UTF-8: %w", path, err)
	}
	f.Text, f.Encoding = string(utf8), "UTF-8"
	return f, nil
}

func decode(charset string, data []byte) (string, error) {
	enc, err := Lookup(charset)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", charset, err)
	}
	return string(out), nil
}
