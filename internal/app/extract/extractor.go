package extract

import (
	"errors"
	"fmt"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
)

// Outcome classifies what the extractor did with one record.
type Outcome int

const (
	OutcomeExtracted Outcome = iota
	OutcomeUnknown
	OutcomeDropped
	OutcomeMalformed
	OutcomeNoTime
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeDropped:
		return "dropped"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNoTime:
		return "no_time"
	default:
		return "invalid"
	}
}

// Extractor routes records into the groups of one SeriesSet. It is not
// safe for concurrent use; each log gets its own Extractor.
type Extractor struct {
	set   *domain.SeriesSet
	stats domain.ExtractStats
}

// NewExtractor returns an extractor writing into a fresh SeriesSet.
func NewExtractor() *Extractor {
	return &Extractor{set: domain.NewSeriesSet()}
}

// Observe routes one record stamped with time t. A malformed record is
// reported through the returned error and leaves every group untouched.
func (e *Extractor) Observe(rec *domain.Record, t float64) (Outcome, error) {
	e.stats.Records++
	msg, err := decode(rec)
	if err == nil && msg != nil {
		err = e.apply(msg, t)
	}
	return e.tally(msg, err)
}

// Skip counts a record that never reached routing because it had no time.
func (e *Extractor) Skip() {
	e.stats.Records++
	e.stats.NoTime++
}

// Malformed counts a record rejected before routing.
func (e *Extractor) Malformed() {
	e.stats.Records++
	e.stats.Malformed++
}

// Set returns the series accumulated so far.
func (e *Extractor) Set() *domain.SeriesSet { return e.set }

// Stats returns the per-outcome record counts.
func (e *Extractor) Stats() domain.ExtractStats { return e.stats }

func (e *Extractor) tally(msg message, err error) (Outcome, error) {
	switch {
	case errors.Is(err, errDropped):
		e.stats.Dropped++
		return OutcomeDropped, nil
	case err != nil:
		e.stats.Malformed++
		return OutcomeMalformed, err
	case msg == nil:
		e.stats.Unknown++
		return OutcomeUnknown, nil
	default:
		e.stats.Extracted++
		return OutcomeExtracted, nil
	}
}

func (e *Extractor) apply(msg message, t float64) error {
	s := e.set
	switch m := msg.(type) {
	case attitudeMsg:
		return s.Attitude.Append(t, m.roll, m.pitch, m.yaw, m.desRoll, m.desPitch, m.desYaw)
	case rateMsg:
		return s.Rate.Append(t, m.r, m.p, m.y, m.rDes, m.pDes, m.yDes)
	case xkf4Msg:
		return s.XKF4.Append(t, m.sv, m.sp, m.sh, m.sm, m.svt)
	case baroMsg:
		g, ok := s.Altitude.At(m.instance)
		if !ok {
			return errDropped
		}
		return g.Append(t, m.alt)
	case gpaMsg:
		return s.GPA.Append(t, m.hAcc, m.sAcc, m.vAcc)
	case vibeMsg:
		return s.Vibe.Append(t, m.x, m.y, m.z, m.clip)
	case escMsg:
		g, ok := s.ESC.At(m.instance)
		if !ok {
			return errDropped
		}
		return g.Append(t, m.rpm, m.rawRPM, m.volt, m.curr, m.temp)
	case batteryMsg:
		return s.Battery.Append(t, m.volt, m.curr, m.temp)
	case rcMsg:
		g := s.RCIn
		if m.out {
			g = s.RCOut
		}
		return g.Append(t, m.c1, m.c2, m.c3, m.c4)
	default:
		return fmt.Errorf("extract: no route for message kind %d", msg.kind())
	}
}
