package blob

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = "FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns\nPOS,1,2,37.4,-122.1\n"

func TestFileBlobsRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		b, err := NewFileBlobs(dir, compress)
		if err != nil {
			t.Fatalf("new blobs: %v", err)
		}

		n, err := b.Put("flight.log", strings.NewReader(sample))
		if err != nil || n != int64(len(sample)) {
			t.Fatalf("put (compress=%v): n=%d err=%v", compress, n, err)
		}
		if !b.Exists("flight.log") {
			t.Fatalf("expected blob to exist (compress=%v)", compress)
		}

		rc, err := b.Open("flight.log")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		got, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil || string(got) != sample {
			t.Fatalf("round trip mismatch (compress=%v): %q err=%v", compress, got, err)
		}

		_, statErr := os.Stat(filepath.Join(dir, "flight.log.zst"))
		if compress != (statErr == nil) {
			t.Fatalf("compressed file presence mismatch (compress=%v): %v", compress, statErr)
		}
	}
}

func TestFileBlobsRejectsPaths(t *testing.T) {
	b, err := NewFileBlobs(t.TempDir(), false)
	if err != nil {
		t.Fatalf("new blobs: %v", err)
	}
	for _, name := range []string{"", "..", "../escape.BIN", "a/b.log"} {
		if _, err := b.Put(name, strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Put(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
	if b.Exists("missing.BIN") {
		t.Fatalf("missing blob reported as existing")
	}
}
