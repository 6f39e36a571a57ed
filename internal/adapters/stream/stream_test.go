package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
)

const textLog = `FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns
FMT, 129, 45, ATT, QccccCC, TimeUS,DesRoll,Roll,DesPitch,Pitch,DesYaw,Yaw
FMT, 130, 20, BARO, QBf, TimeUS,I,Alt
FMT, 131, 30, MSG, QZ, TimeUS,Message
ATT, 2500000, 1.10, 1.00, 2.10, 2.00, 3.10, 3.00
BARO, 3000000, 1, 12.5
MSG, 3100000, ArduCopter V4.5.0
UNKN, 1, 2, 3
BARO, 3200000, x, 13.0
`

func drain(t *testing.T, s interface {
	Next() (*domain.Record, error)
}) []*domain.Record {
	t.Helper()
	var out []*domain.Record
	for {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, rec)
	}
}

func TestTextReaderDecodesFormattedLines(t *testing.T) {
	r := NewTextReader(strings.NewReader(textLog))
	recs := drain(t, r)

	var types []string
	for _, rec := range recs {
		types = append(types, rec.Type)
	}
	want := "FMT,FMT,FMT,FMT,ATT,BARO,MSG,BARO"
	if strings.Join(types, ",") != want {
		t.Fatalf("record types = %v, want %s", types, want)
	}

	att := recs[4]
	if v, _, _ := att.Number("Roll"); v != 1.0 {
		t.Fatalf("expected Roll 1.0, got %v", v)
	}
	if v, _, _ := att.Number("TimeUS"); v != 2_500_000 {
		t.Fatalf("expected TimeUS 2500000, got %v", v)
	}
	if msg := recs[6].Fields["Message"]; msg != "ArduCopter V4.5.0" {
		t.Fatalf("expected message text, got %v", msg)
	}
	if _, ok := recs[7].Fields["I"].(string); !ok {
		t.Fatalf("unparseable numeric column must keep its raw text")
	}
	if st, ok := r.StreamTime(); !ok || st != 3.2 {
		t.Fatalf("expected stream time 3.2, got %v %v", st, ok)
	}
}

func TestOpenRejectsUnknownExtension(t *testing.T) {
	for _, name := range []string{"flight.csv", "flight.bin", "flight.LOG", "flight"} {
		if _, err := Open(name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("Open(%q): expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestOpenTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00000001.log")
	if err := os.WriteFile(path, []byte(textLog), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*TextReader); !ok {
		t.Fatalf("expected a text reader, got %T", s)
	}
	if n := len(drain(t, s)); n != 8 {
		t.Fatalf("expected 8 records, got %d", n)
	}
}

func fixedString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func fmtMessage(typ, length uint8, name, format, columns string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{head1, head2, fmtTypeID, typ, length})
	buf.Write(fixedString(name, 4))
	buf.Write(fixedString(format, 16))
	buf.Write(fixedString(columns, 64))
	return buf.Bytes()
}

func attMessage(typ uint8, timeUS uint64, vals ...float32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{head1, head2, typ})
	_ = binary.Write(&buf, binary.LittleEndian, timeUS)
	for _, v := range vals {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	return buf.Bytes()
}

func TestBinaryReaderDecodesAndResyncs(t *testing.T) {
	var log bytes.Buffer
	log.Write(fmtMessage(35, 35, "ATT", "Qffffff", "TimeUS,Roll,Pitch,Yaw,DesRoll,DesPitch,DesYaw"))
	log.Write(attMessage(35, 10_000_000, 1, 2, 3, 1.5, 2.5, 3.5))
	log.Write([]byte{0x00, 0xA3, 0x11, 0xFF})
	log.Write(attMessage(35, 11_000_000, 4, 5, 6, 4.5, 5.5, 6.5))
	log.Write([]byte{head1, head2, 99})
	log.Write(attMessage(35, 12_000_000, 7, 8)[:12])

	r := NewBinaryReader(&log)
	recs := drain(t, r)
	if len(recs) != 3 {
		t.Fatalf("expected FMT + 2 ATT records, got %d", len(recs))
	}
	if recs[0].Type != "FMT" || recs[1].Type != "ATT" || recs[2].Type != "ATT" {
		t.Fatalf("unexpected types %s %s %s", recs[0].Type, recs[1].Type, recs[2].Type)
	}
	if v, _, _ := recs[2].Number("DesRoll"); v != 4.5 {
		t.Fatalf("expected DesRoll 4.5, got %v", v)
	}
	if st, ok := r.StreamTime(); !ok || st != 11 {
		t.Fatalf("expected stream time 11, got %v", st)
	}
	if r.Skipped() == 0 {
		t.Fatalf("expected garbage bytes to be counted")
	}
}

func TestDecodePayloadScaledTypes(t *testing.T) {
	var p bytes.Buffer
	_ = binary.Write(&p, binary.LittleEndian, int16(-1234))
	_ = binary.Write(&p, binary.LittleEndian, int32(-353632610))
	p.Write(fixedString("GPS", 4))

	f := binaryFormat{name: "X", format: "cLn", columns: []string{"A", "Lat", "N"}}
	fields, err := decodePayload(f, p.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fields["A"] != -12.34 {
		t.Fatalf("expected centi-scaled -12.34, got %v", fields["A"])
	}
	if lat := fields["Lat"].(float64); math.Abs(lat-(-35.363261)) > 1e-9 {
		t.Fatalf("expected latitude -35.363261, got %v", lat)
	}
	if fields["N"] != "GPS" {
		t.Fatalf("expected NUL-trimmed string, got %q", fields["N"])
	}

	if _, err := decodePayload(f, p.Bytes()[:3]); !errors.Is(err, errShortPayload) {
		t.Fatalf("expected short payload error, got %v", err)
	}
}
