package stream

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

const maxTextLine = 1 << 20

// TextReader decodes comma-separated DataFlash text dumps. Column names
// come from the FMT lines that precede each message type.
type TextReader struct {
	src      io.Reader
	scanner  *bufio.Scanner
	formats  map[string]textFormat
	lastTime float64
	hasTime  bool
}

type textFormat struct {
	format  string
	columns []string
}

func NewTextReader(r io.Reader) *TextReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTextLine)
	return &TextReader{
		src:     r,
		scanner: sc,
		formats: make(map[string]textFormat),
	}
}

func (t *TextReader) Next() (*domain.Record, error) {
	for t.scanner.Scan() {
		parts := splitFields(t.scanner.Text())
		if len(parts) == 0 || parts[0] == "" {
			continue
		}
		if parts[0] == "FMT" {
			rec, ok := t.defineFormat(parts)
			if ok {
				return rec, nil
			}
			continue
		}
		f, ok := t.formats[parts[0]]
		if !ok {
			continue
		}
		rec := &domain.Record{Type: parts[0], Fields: make(map[string]any, len(f.columns))}
		for i, col := range f.columns {
			if i+1 >= len(parts) {
				break
			}
			var c byte
			if i < len(f.format) {
				c = f.format[i]
			}
			rec.Fields[col] = parseTextValue(c, parts[i+1])
		}
		t.observeTime(rec)
		return rec, nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, fmt.Errorf("text log scan: %w", err)
	}
	return nil, io.EOF
}

func (t *TextReader) StreamTime() (float64, bool) { return t.lastTime, t.hasTime }

func (t *TextReader) Close() error { return closeIfCloser(t.src) }

// defineFormat handles "FMT, type, length, name, format, col1,col2,...".
func (t *TextReader) defineFormat(parts []string) (*domain.Record, bool) {
	if len(parts) < 5 {
		return nil, false
	}
	name, format := parts[3], parts[4]
	if name == "" {
		return nil, false
	}
	columns := append([]string(nil), parts[5:]...)
	t.formats[name] = textFormat{format: format, columns: columns}

	return &domain.Record{Type: "FMT", Fields: map[string]any{
		"Type":    parseTextValue('B', parts[1]),
		"Length":  parseTextValue('B', parts[2]),
		"Name":    name,
		"Format":  format,
		"Columns": strings.Join(columns, ","),
	}}, true
}

func (t *TextReader) observeTime(rec *domain.Record) {
	if v, ok, err := rec.Number("TimeUS"); ok && err == nil {
		t.lastTime, t.hasTime = v/1e6, true
	}
}

func splitFields(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseTextValue converts raw according to the DataFlash format character.
// Numeric columns that fail to parse keep their raw text so the consumer
// can reject the record.
func parseTextValue(c byte, raw string) any {
	switch c {
	case 'n', 'N', 'Z', 'a':
		return raw
	case 'b', 'h', 'i', 'q':
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case 'B', 'H', 'I', 'Q', 'M':
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return v
		}
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return raw
}

var _ ports.RecordStream = (*TextReader)(nil)
