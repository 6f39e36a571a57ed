package extract

import "github.com/Arrow-air/Flight-Log-Analyser/internal/domain"

const (
	fieldBootMS = "time_boot_ms"
	fieldTimeUS = "TimeUS"
)

// TimeSource supplies the decoder's last-known onboard time.
type TimeSource interface {
	StreamTime() (float64, bool)
}

// ResolveTime returns the record's elapsed time in seconds. The boot
// millisecond field wins over the microsecond field, which wins over the
// stream's own clock. ok is false when no time is available.
func ResolveTime(rec *domain.Record, src TimeSource) (t float64, ok bool, err error) {
	if v, present, err := rec.Number(fieldBootMS); err != nil {
		return 0, false, err
	} else if present {
		return v / 1000, true, nil
	}
	if v, present, err := rec.Number(fieldTimeUS); err != nil {
		return 0, false, err
	} else if present {
		return v / 1e6, true, nil
	}
	if src != nil {
		if st, ok := src.StreamTime(); ok {
			return st, true, nil
		}
	}
	return 0, false, nil
}
