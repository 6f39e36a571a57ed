package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// ErrUnsupportedFormat is returned for file names that are neither .BIN
// nor .log.
var ErrUnsupportedFormat = errors.New("unsupported log format")

const (
	ExtBinary = ".BIN"
	ExtText   = ".log"
)

// Supported reports whether name has an extension a stream can be opened for.
func Supported(name string) bool {
	return strings.HasSuffix(name, ExtBinary) || strings.HasSuffix(name, ExtText)
}

// IsText reports whether name is a text-framed log.
func IsText(name string) bool {
	return strings.HasSuffix(name, ExtText)
}

// Open opens the log at path, picking the decoder from its extension.
func Open(path string) (ports.RecordStream, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	s, err := OpenReader(path, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// OpenReader wraps r in the decoder matching name's extension. If r is an
// io.Closer it is closed with the stream.
func OpenReader(name string, r io.Reader) (ports.RecordStream, error) {
	switch {
	case strings.HasSuffix(name, ExtBinary):
		return NewBinaryReader(r), nil
	case strings.HasSuffix(name, ExtText):
		return NewTextReader(r), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func closeIfCloser(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
