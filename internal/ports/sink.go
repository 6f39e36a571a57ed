package ports

import "github.com/Arrow-air/Flight-Log-Analyser/internal/domain"

// SeriesSink receives the extracted series of one log.
type SeriesSink interface {
	WriteSeries(logID string, set *domain.SeriesSet) error
	Name() string
}
