package ports

import "github.com/Arrow-air/Flight-Log-Analyser/internal/domain"

// RecordStream yields decoded log records in file order. Next returns
// io.EOF once the stream is exhausted.
type RecordStream interface {
	Next() (*domain.Record, error)
	// StreamTime is the last onboard time seen by the decoder, in seconds.
	StreamTime() (float64, bool)
	Close() error
}
