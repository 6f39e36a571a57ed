package analyser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExtractTextLog(t *testing.T) {
	var progress []int
	set, stats, err := Extract(writeLog(t, "flight.log", textLog), WithRecordProgress(2, func(n int) { progress = append(progress, n) }))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if stats.Records != 4 || stats.Extracted != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	roll, ok := set.Attitude.Series("Roll")
	if !ok || roll.Len() != 2 || roll.Times[0] != 10 || roll.Values[1] != 1.05 {
		t.Fatalf("unexpected roll series %+v", roll)
	}
	if len(set.Groups()) != 1 {
		t.Fatalf("expected only the attitude group to be populated, got %d", len(set.Groups()))
	}
	if len(progress) != 2 {
		t.Fatalf("expected progress every 2 records, got %v", progress)
	}
}

func TestExtractRejectsUnknownExtension(t *testing.T) {
	if _, _, err := Extract(writeLog(t, "flight.csv", textLog)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRedactFile(t *testing.T) {
	in := writeLog(t, "flight.log", textLog)
	out := filepath.Join(t.TempDir(), "anon.log")

	n, err := RedactFile(in, out)
	if err != nil || n != 1 {
		t.Fatalf("redact: n=%d err=%v", n, err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "GPS,1,2,3,4,5,6,7,0,0,0\n") || strings.Contains(string(b), "37.4") {
		t.Fatalf("coordinates not redacted:\n%s", b)
	}

	if _, err := RedactFile(writeLog(t, "flight.BIN", ""), out); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("binary logs cannot be redacted, got %v", err)
	}
}

func TestRedactLines(t *testing.T) {
	got := RedactLines([]string{"POS,1,2,37.4,-122.1", "ATT,1,2"})
	if got[0] != "POS,1,2,0,0" || got[1] != "ATT,1,2" {
		t.Fatalf("unexpected redaction %v", got)
	}
}

func TestRenderChartsAndNotes(t *testing.T) {
	set, _, err := Extract(writeLog(t, "flight.log", textLog))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	files, err := RenderCharts(context.Background(), set, t.TempDir(), RenderConfig{Width: 300, Height: 150, Parallelism: 1})
	if err != nil || len(files) != 1 {
		t.Fatalf("render: %v %v", files, err)
	}

	html, err := RenderNotes([]byte("*gusty*"))
	if err != nil || !strings.Contains(html, "<em>gusty</em>") {
		t.Fatalf("notes: %q %v", html, err)
	}
}
