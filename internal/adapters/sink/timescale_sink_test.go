package sink

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
)

func TestTimescaleSinkWriteSeries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	set := domain.NewSeriesSet()
	if err := set.Battery.Append(1.5, 15.2, 3.1, 40); err != nil {
		t.Fatalf("append: %v", err)
	}

	sink := NewTimescaleSink(db, "series_samples")

	expectedQuery := regexp.QuoteMeta(`INSERT INTO "series_samples" (log_id, grp, field, seq, t, value) VALUES ($1,$2,$3,$4,$5,$6),($7,$8,$9,$10,$11,$12),($13,$14,$15,$16,$17,$18) ON CONFLICT (log_id, grp, field, seq) DO NOTHING`)
	mock.ExpectBegin()
	mock.ExpectExec(expectedQuery).
		WithArgs(
			"log-1", "battery", "Volt", 0, 1.5, 15.2,
			"log-1", "battery", "Curr", 0, 1.5, 3.1,
			"log-1", "battery", "Temp", 0, 1.5, 40.0,
		).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	if err := sink.WriteSeries("log-1", set); err != nil {
		t.Fatalf("write series: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkSplitsBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	set := domain.NewSeriesSet()
	for i := 0; i < 3; i++ {
		_ = set.RCIn.Append(float64(i), 1500, 1500, 1000, 1500)
	}

	sink := NewTimescaleSink(db, "series_samples")
	sink.batchRows = 5

	mock.ExpectBegin()
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO "series_samples"`).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := sink.WriteSeries("log-2", set); err != nil {
		t.Fatalf("write series: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	set := domain.NewSeriesSet()
	_ = set.GPA.Append(2, 0.5, 0.2, 0.9)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "series_samples"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := NewTimescaleSink(db, "series_samples").WriteSeries("log-3", set); err == nil {
		t.Fatalf("expected export error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteSeriesEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "series_samples")
	if err := sink.WriteSeries("empty", domain.NewSeriesSet()); err != nil {
		t.Fatalf("expected nil error for empty set, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}

func TestTimescaleSinkKeepsRepeatedTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// the stream-time fallback stamps consecutive records with one time
	set := domain.NewSeriesSet()
	_ = set.Altitude[0].Append(7.25, 101)
	_ = set.Altitude[0].Append(7.25, 102)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (log_id, grp, field, seq) DO NOTHING`)).
		WithArgs(
			"log-3", "altitude_0", "Alt0", 0, 7.25, 101.0,
			"log-3", "altitude_0", "Alt0", 1, 7.25, 102.0,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := NewTimescaleSink(db, "series_samples").WriteSeries("log-3", set); err != nil {
		t.Fatalf("write series: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`PRIMARY KEY (log_id, grp, field, seq)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewTimescaleSink(db, "series_samples").EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
