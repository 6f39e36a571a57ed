package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

const compressedSuffix = ".zst"

var ErrInvalidName = errors.New("invalid blob name")

// FileBlobs stores uploads as files under one directory, optionally zstd
// compressed. Callers always see the original bytes.
type FileBlobs struct {
	dir      string
	compress bool
}

func NewFileBlobs(dir string, compress bool) (*FileBlobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileBlobs{dir: dir, compress: compress}, nil
}

func (b *FileBlobs) Dir() string { return b.dir }

func (b *FileBlobs) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Join(b.dir, name)
	if b.compress {
		p += compressedSuffix
	}
	return p, nil
}

// Put writes r to name, replacing any previous blob. It returns the number
// of uncompressed bytes written.
func (b *FileBlobs) Put(name string, r io.Reader) (int64, error) {
	p, err := b.path(name)
	if err != nil {
		return 0, err
	}
	tmp := p + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := b.copyInto(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, fmt.Errorf("store %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return n, err
	}
	return n, nil
}

func (b *FileBlobs) copyInto(f *os.File, r io.Reader) (int64, error) {
	if !b.compress {
		return io.Copy(f, r)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(enc, r)
	if err != nil {
		_ = enc.Close()
		return n, err
	}
	return n, enc.Close()
}

func (b *FileBlobs) Open(name string) (io.ReadCloser, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	if !b.compress {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &zstdFile{Decoder: dec, f: f}, nil
}

func (b *FileBlobs) Exists(name string) bool {
	p, err := b.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

var _ ports.BlobStore = (*FileBlobs)(nil)
