// Package horosafe provides the filesystem and I/O guards used when handling
// uploads and provider responses: path traversal checks, file name
// sanitizing and bounded reads.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxResponseBody is the default cap for HTTP response body reads (1 MiB).
const MaxResponseBody int64 = 1 << 20

// maxFilenameLen bounds sanitized file names, in bytes.
const maxFilenameLen = 200

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// ErrTooLarge is returned by LimitedReadAll when the reader holds too much.
var ErrTooLarge = errors.New("horosafe: input too large")

// ErrEmptyFilename is returned by SanitizeFilename when nothing usable remains.
var ErrEmptyFilename = errors.New("horosafe: empty file name")

// SafePath validates that joining base and userInput does not escape base.
// Returns the cleaned path or ErrPathTraversal.
func SafePath(base, userInput string) (string, error) {
	if strings.Contains(userInput, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+userInput))
	if !strings.HasPrefix(cleaned, filepath.Clean(base)+string(filepath.Separator)) &&
		cleaned != filepath.Clean(base) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// SanitizeFilename reduces a client-supplied file name to a safe base name:
// directory components are dropped, control characters and path separators
// are replaced with '_', and the result is capped while keeping the
// extension.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == ':' {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "", ErrEmptyFilename
	}
	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		stem := strings.ToValidUTF8(name[:maxFilenameLen-len(ext)], "")
		name = stem + ext
	}
	return name, nil
}

// LimitedReadAll reads at most maxBytes from r and fails if r holds more.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// LimitReadCloser wraps rc so that reading past maxBytes fails with
// ErrTooLarge instead of silently stopping.
func LimitReadCloser(rc io.ReadCloser, maxBytes int64) io.ReadCloser {
	return &limitedReadCloser{r: io.LimitReader(rc, maxBytes+1), c: rc, max: maxBytes}
}

type limitedReadCloser struct {
	r    io.Reader
	c    io.Closer
	max  int64
	read int64
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.max)
	}
	return n, err
}

func (l *limitedReadCloser) Close() error { return l.c.Close() }
