package redact

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Position names one field of a record type and where it sits among the
// comma-separated fields that follow the type token.
type Position struct {
	Field string
	Index int
}

// Entry is the redaction rule for one record-type prefix.
type Entry struct {
	Prefix    string
	Positions []Position
}

// Table is the ordered rule list; the first matching prefix wins.
type Table []Entry

// PositionTable covers the record types that carry vehicle coordinates.
// Indices must match the log's column order; a changed layout silently
// stops redacting.
var PositionTable = Table{
	{Prefix: "GPS", Positions: []Position{{"Lat", 7}, {"Lng", 8}, {"Alt", 9}}},
	{Prefix: "AHR2", Positions: []Position{{"Lat", 6}, {"Lng", 7}}},
	{Prefix: "EAHR", Positions: []Position{{"Lat", 5}, {"Lng", 6}}},
	{Prefix: "POS", Positions: []Position{{"Lat", 2}, {"Lng", 3}}},
	{Prefix: "TERR", Positions: []Position{{"Lat", 3}, {"Lng", 4}}},
	{Prefix: "ORGN", Positions: []Position{{"Lat", 3}, {"Lng", 4}}},
}

const zero = "0"

// Match returns the first entry whose prefix starts line.
//
// TODO: compare the whole type token instead of a prefix so GPS2 and GPSB
// lines stop hitting the GPS rule.
func (t Table) Match(line string) (Entry, bool) {
	for _, e := range t {
		if strings.HasPrefix(line, e.Prefix) {
			return e, true
		}
	}
	return Entry{}, false
}

// Line redacts a single line without its terminator. changed reports
// whether the line matched a rule; unmatched lines are returned as given.
func (t Table) Line(line string) (out string, changed bool) {
	trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
	e, ok := t.Match(trimmed)
	if !ok {
		return line, false
	}
	parts := strings.Split(trimmed, ",")
	for _, p := range e.Positions {
		// parts[0] is the type token.
		if i := p.Index + 1; i < len(parts) {
			parts[i] = zero
		}
	}
	return strings.Join(parts, ","), true
}

// Lines redacts every line and returns a slice of the same length.
func (t Table) Lines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i], _ = t.Line(l)
	}
	return out
}

// Redactor streams a text log through a Table.
type Redactor struct {
	table Table
}

// New returns a Redactor for table; a nil table selects PositionTable.
func New(table Table) *Redactor {
	if table == nil {
		table = PositionTable
	}
	return &Redactor{table: table}
}

func (r *Redactor) Name() string { return "position-redactor" }

// Transform copies r to w line by line, zeroing coordinate fields. Every
// output line ends in "\n". It returns the number of redacted lines.
func (r *Redactor) Transform(src io.Reader, dst io.Writer) (int, error) {
	br := bufio.NewReader(src)
	bw := bufio.NewWriter(dst)
	var n int
	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
			out, changed := r.table.Line(line)
			if changed {
				n++
			}
			if _, werr := bw.WriteString(out); werr != nil {
				return n, fmt.Errorf("redact write: %w", werr)
			}
			if werr := bw.WriteByte('\n'); werr != nil {
				return n, fmt.Errorf("redact write: %w", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("redact read: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("redact flush: %w", err)
	}
	return n, nil
}
