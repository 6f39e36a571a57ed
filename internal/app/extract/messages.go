package extract

import (
	"errors"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
)

// Kind enumerates the record types the extractor understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindAttitude
	KindRate
	KindXKF4
	KindBaro
	KindGPA
	KindVibe
	KindESC
	KindBattery
	KindRCIn
	KindRCOut
)

var kindByTag = map[string]Kind{
	"ATT":  KindAttitude,
	"RATE": KindRate,
	"XKF4": KindXKF4,
	"BARO": KindBaro,
	"GPA":  KindGPA,
	"VIBE": KindVibe,
	"ESC":  KindESC,
	"BAT":  KindBattery,
	"RCIN": KindRCIn,
	"RCOU": KindRCOut,
}

// KindOf maps a record type tag to its Kind.
func KindOf(tag string) Kind {
	return kindByTag[tag]
}

var (
	// errDropped marks a record that is valid but routed nowhere: an
	// instance id outside the tracked range or a missing optional field.
	errDropped = errors.New("record dropped")
)

// message is a fully decoded record. Decoding completes before anything is
// appended so a bad field never leaves a group half-written.
type message interface {
	kind() Kind
}

type attitudeMsg struct{ roll, pitch, yaw, desRoll, desPitch, desYaw float64 }

type rateMsg struct{ r, p, y, rDes, pDes, yDes float64 }

type xkf4Msg struct{ sv, sp, sh, sm, svt float64 }

type baroMsg struct {
	instance int
	alt      float64
}

type gpaMsg struct{ hAcc, sAcc, vAcc float64 }

type vibeMsg struct{ x, y, z, clip float64 }

type escMsg struct {
	instance int
	rpm      float64
	rawRPM   float64
	volt     float64
	curr     float64
	temp     float64
}

type batteryMsg struct{ volt, curr, temp float64 }

type rcMsg struct {
	out            bool
	c1, c2, c3, c4 float64
}

func (attitudeMsg) kind() Kind { return KindAttitude }
func (rateMsg) kind() Kind     { return KindRate }
func (xkf4Msg) kind() Kind     { return KindXKF4 }
func (baroMsg) kind() Kind     { return KindBaro }
func (gpaMsg) kind() Kind      { return KindGPA }
func (vibeMsg) kind() Kind     { return KindVibe }
func (escMsg) kind() Kind      { return KindESC }
func (batteryMsg) kind() Kind  { return KindBattery }
func (m rcMsg) kind() Kind {
	if m.out {
		return KindRCOut
	}
	return KindRCIn
}

// fieldReader reads required numeric fields and keeps the first failure.
type fieldReader struct {
	rec *domain.Record
	err error
}

func (f *fieldReader) num(name string) float64 {
	if f.err != nil {
		return 0
	}
	v, err := f.rec.MustNumber(name)
	if err != nil {
		f.err = err
	}
	return v
}

// decode turns a record into its typed message. Unknown tags yield a nil
// message and nil error.
func decode(rec *domain.Record) (message, error) {
	f := &fieldReader{rec: rec}

	switch KindOf(rec.Type) {
	case KindAttitude:
		m := attitudeMsg{
			roll: f.num("Roll"), pitch: f.num("Pitch"), yaw: f.num("Yaw"),
			desRoll: f.num("DesRoll"), desPitch: f.num("DesPitch"), desYaw: f.num("DesYaw"),
		}
		return m, f.err
	case KindRate:
		m := rateMsg{
			r: f.num("R"), p: f.num("P"), y: f.num("Y"),
			rDes: f.num("RDes"), pDes: f.num("PDes"), yDes: f.num("YDes"),
		}
		return m, f.err
	case KindXKF4:
		m := xkf4Msg{sv: f.num("SV"), sp: f.num("SP"), sh: f.num("SH"), sm: f.num("SM"), svt: f.num("SVT")}
		return m, f.err
	case KindBaro:
		id, err := instance(rec, "I", domain.BaroChannels)
		if err != nil {
			return nil, err
		}
		if !rec.Has("Alt") {
			return nil, errDropped
		}
		return baroMsg{instance: id, alt: f.num("Alt")}, f.err
	case KindGPA:
		m := gpaMsg{hAcc: f.num("HAcc"), sAcc: f.num("SAcc"), vAcc: f.num("VAcc")}
		return m, f.err
	case KindVibe:
		m := vibeMsg{x: f.num("VibeX"), y: f.num("VibeY"), z: f.num("VibeZ"), clip: f.num("Clip")}
		return m, f.err
	case KindESC:
		id, err := instance(rec, "Instance", domain.ESCInstances)
		if err != nil {
			return nil, err
		}
		m := escMsg{
			instance: id,
			rpm:      f.num("RPM"),
			rawRPM:   f.num("RawRPM"),
			volt:     f.num("Volt"),
			curr:     f.num("Curr"),
			temp:     f.num("Temp"),
		}
		return m, f.err
	case KindBattery:
		m := batteryMsg{volt: f.num("Volt"), curr: f.num("Curr"), temp: f.num("Temp")}
		return m, f.err
	case KindRCIn, KindRCOut:
		m := rcMsg{out: rec.Type == "RCOU"}
		m.c1, m.c2, m.c3, m.c4 = f.num("C1"), f.num("C2"), f.num("C3"), f.num("C4")
		return m, f.err
	default:
		return nil, nil
	}
}

// instance reads an instance id and rejects anything outside [0, n).
func instance(rec *domain.Record, field string, n int) (int, error) {
	id, ok, err := rec.Instance(field)
	if err != nil {
		return 0, err
	}
	if !ok || id < 0 || id >= n {
		return 0, errDropped
	}
	return id, nil
}
