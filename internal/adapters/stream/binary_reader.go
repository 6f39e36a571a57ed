package stream

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

const (
	head1 = 0xA3
	head2 = 0x95

	fmtTypeID   = 128
	fmtLength   = 89
	headerLen   = 3
	windowBytes = 64 * 1024
)

// BinaryReader decodes DataFlash binary logs. Bytes that do not start a
// known message are skipped until the next header.
type BinaryReader struct {
	src      io.Reader
	r        *bufio.Reader
	formats  map[uint8]binaryFormat
	lastTime float64
	hasTime  bool
	skipped  int64
}

type binaryFormat struct {
	name    string
	length  int
	format  string
	columns []string
}

func NewBinaryReader(r io.Reader) *BinaryReader {
	return &BinaryReader{
		src: r,
		r:   bufio.NewReaderSize(r, windowBytes),
		formats: map[uint8]binaryFormat{
			fmtTypeID: {
				name:    "FMT",
				length:  fmtLength,
				format:  "BBnNZ",
				columns: []string{"Type", "Length", "Name", "Format", "Columns"},
			},
		},
	}
}

func (b *BinaryReader) Next() (*domain.Record, error) {
	for {
		typ, err := b.syncHeader()
		if err != nil {
			return nil, err
		}
		f, ok := b.formats[typ]
		if !ok || f.length <= headerLen {
			b.skipped += headerLen
			continue
		}

		payload := make([]byte, f.length-headerLen)
		if _, err := io.ReadFull(b.r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("binary log read: %w", err)
		}

		fields, err := decodePayload(f, payload)
		if err != nil {
			b.skipped += int64(f.length)
			continue
		}
		rec := &domain.Record{Type: f.name, Fields: fields}
		if typ == fmtTypeID {
			b.defineFormat(rec)
		}
		if v, ok, err := rec.Number("TimeUS"); ok && err == nil {
			b.lastTime, b.hasTime = v/1e6, true
		}
		return rec, nil
	}
}

func (b *BinaryReader) StreamTime() (float64, bool) { return b.lastTime, b.hasTime }

func (b *BinaryReader) Close() error { return closeIfCloser(b.src) }

// Skipped returns how many bytes were discarded while resynchronising.
func (b *BinaryReader) Skipped() int64 { return b.skipped }

// syncHeader advances to the next A3 95 marker and returns the type byte.
func (b *BinaryReader) syncHeader() (uint8, error) {
	for {
		c, err := b.r.ReadByte()
		if err != nil {
			return 0, eofOr(err)
		}
		if c != head1 {
			b.skipped++
			continue
		}
		c, err = b.r.ReadByte()
		if err != nil {
			return 0, eofOr(err)
		}
		if c != head2 {
			b.skipped++
			_ = b.r.UnreadByte()
			continue
		}
		typ, err := b.r.ReadByte()
		if err != nil {
			return 0, eofOr(err)
		}
		return typ, nil
	}
}

func (b *BinaryReader) defineFormat(rec *domain.Record) {
	typ, _, err1 := rec.Number("Type")
	length, _, err2 := rec.Number("Length")
	name, _ := rec.Fields["Name"].(string)
	format, _ := rec.Fields["Format"].(string)
	columns, _ := rec.Fields["Columns"].(string)
	if err1 != nil || err2 != nil || name == "" || typ == fmtTypeID {
		return
	}
	var cols []string
	if columns != "" {
		cols = strings.Split(columns, ",")
	}
	b.formats[uint8(typ)] = binaryFormat{
		name:    name,
		length:  int(length),
		format:  format,
		columns: cols,
	}
}

func eofOr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("binary log read: %w", err)
}

var errShortPayload = errors.New("payload shorter than format")

// decodePayload unpacks a little-endian payload per the format string.
func decodePayload(f binaryFormat, p []byte) (map[string]any, error) {
	fields := make(map[string]any, len(f.columns))
	le := binary.LittleEndian
	off := 0
	for i := 0; i < len(f.format); i++ {
		c := f.format[i]
		size := formatSize(c)
		if size == 0 {
			return nil, fmt.Errorf("unknown format character %q", c)
		}
		if off+size > len(p) {
			return nil, errShortPayload
		}
		b := p[off : off+size]
		off += size

		var v any
		switch c {
		case 'b':
			v = int64(int8(b[0]))
		case 'B', 'M':
			v = uint64(b[0])
		case 'h':
			v = int64(int16(le.Uint16(b)))
		case 'H':
			v = uint64(le.Uint16(b))
		case 'i':
			v = int64(int32(le.Uint32(b)))
		case 'I':
			v = uint64(le.Uint32(b))
		case 'q':
			v = int64(le.Uint64(b))
		case 'Q':
			v = le.Uint64(b)
		case 'f':
			v = float64(math.Float32frombits(le.Uint32(b)))
		case 'd':
			v = math.Float64frombits(le.Uint64(b))
		case 'c':
			v = float64(int16(le.Uint16(b))) / 100
		case 'C':
			v = float64(le.Uint16(b)) / 100
		case 'e':
			v = float64(int32(le.Uint32(b))) / 100
		case 'E':
			v = float64(le.Uint32(b)) / 100
		case 'L':
			v = float64(int32(le.Uint32(b))) * 1e-7
		case 'n', 'N', 'Z':
			v = string(bytes.TrimRight(b, "\x00"))
		case 'a':
			arr := make([]int16, 32)
			for j := range arr {
				arr[j] = int16(le.Uint16(b[j*2:]))
			}
			v = arr
		}
		if i < len(f.columns) {
			fields[f.columns[i]] = v
		}
	}
	return fields, nil
}

func formatSize(c byte) int {
	switch c {
	case 'b', 'B', 'M':
		return 1
	case 'h', 'H', 'c', 'C':
		return 2
	case 'i', 'I', 'f', 'e', 'E', 'L', 'n':
		return 4
	case 'd', 'q', 'Q':
		return 8
	case 'N':
		return 16
	case 'Z', 'a':
		return 64
	default:
		return 0
	}
}

var _ ports.RecordStream = (*BinaryReader)(nil)
