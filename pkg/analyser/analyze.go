package analyser

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/notes"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/render"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/stream"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/extract"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/app/redact"
)

// ErrUnsupportedFormat is returned for logs that are neither .BIN nor .log.
var ErrUnsupportedFormat = stream.ErrUnsupportedFormat

// ExtractOption customizes a single extraction.
type ExtractOption = extract.Option

// WithExtractObservability reports skipped records and timings to obs.
func WithExtractObservability(obs Observability) ExtractOption {
	return extract.WithObservability(obs)
}

// WithRecordProgress calls fn with the running record count every n records.
func WithRecordProgress(n int, fn func(records int)) ExtractOption {
	return extract.WithRecordProgress(n, fn)
}

// OpenLog opens a .BIN or .log file as a record stream.
func OpenLog(path string) (RecordStream, error) {
	return stream.Open(path)
}

// Extract reads the log at path into a SeriesSet.
func Extract(path string, opts ...ExtractOption) (*SeriesSet, ExtractStats, error) {
	s, err := stream.Open(path)
	if err != nil {
		return nil, ExtractStats{}, err
	}
	defer s.Close()
	return extract.Run(s, opts...)
}

// ExtractStream drains an already opened stream into a SeriesSet.
func ExtractStream(s RecordStream, opts ...ExtractOption) (*SeriesSet, ExtractStats, error) {
	return extract.Run(s, opts...)
}

// Redact copies a text log from src to dst with every position field
// zeroed. It returns the number of redacted lines.
func Redact(src io.Reader, dst io.Writer) (int, error) {
	return redact.New(nil).Transform(src, dst)
}

// RedactLines redacts lines held in memory.
func RedactLines(lines []string) []string {
	return redact.PositionTable.Lines(lines)
}

// RedactFile writes a redacted copy of the text log in to out.
func RedactFile(in, out string) (int, error) {
	if !stream.IsText(in) {
		return 0, fmt.Errorf("%w: only %s logs can be redacted: %s", ErrUnsupportedFormat, stream.ExtText, in)
	}
	src, err := os.Open(in)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	n, err := Redact(src, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// RenderCharts writes one PNG per populated topic under dir.
func RenderCharts(ctx context.Context, set *SeriesSet, dir string, rc RenderConfig) (map[string]string, error) {
	return render.NewChartRenderer(rc.Width, rc.Height, rc.Parallelism).Render(ctx, set, dir)
}

// RenderNotes converts markdown notes to HTML.
func RenderNotes(src []byte) (string, error) {
	return notes.NewMarkdown().RenderNotes(src)
}
