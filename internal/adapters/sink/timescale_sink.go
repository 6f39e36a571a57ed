package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// DefaultBatchRows keeps a single INSERT well under the Postgres limit of
// 65535 bind parameters.
const DefaultBatchRows = 2000

const columnsPerRow = 6

// TimescaleSink exports extracted series as one row per sample. Rows are
// keyed by the sample's index within its series, so samples sharing a
// timestamp are all kept.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
	batchRows int
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: pq.QuoteIdentifier(table), batchRows: DefaultBatchRows}
}

// EnsureSchema creates the sample table if it does not exist.
func (t *TimescaleSink) EnsureSchema(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+t.tableName+` (
	log_id TEXT NOT NULL,
	grp    TEXT NOT NULL,
	field  TEXT NOT NULL,
	seq    INTEGER NOT NULL,
	t      DOUBLE PRECISION NOT NULL,
	value  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (log_id, grp, field, seq)
)`)
	if err != nil {
		return fmt.Errorf("ensure series schema: %w", err)
	}
	return nil
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

type row struct {
	group string
	field string
	seq   int
	t     float64
	v     float64
}

// WriteSeries inserts every sample of every populated group inside one
// transaction. Re-exporting a log is idempotent via the unique key.
func (t *TimescaleSink) WriteSeries(logID string, set *domain.SeriesSet) error {
	var rows []row
	for _, g := range set.Groups() {
		for _, s := range g.AllSeries() {
			for i := range s.Times {
				rows = append(rows, row{group: g.Name, field: s.Name, seq: i, t: s.Times[i], v: s.Values[i]})
			}
		}
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	for start := 0; start < len(rows); start += t.batchRows {
		end := start + t.batchRows
		if end > len(rows) {
			end = len(rows)
		}
		query, args := t.insert(logID, rows[start:end])
		if _, err := tx.Exec(query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("export series %s: %w", logID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

func (t *TimescaleSink) insert(logID string, rows []row) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (log_id, grp, field, seq, t, value) VALUES ")

	args := make([]any, 0, len(rows)*columnsPerRow)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, logID, r.group, r.field, r.seq, r.t, r.v)
	}
	b.WriteString(" ON CONFLICT (log_id, grp, field, seq) DO NOTHING")
	return b.String(), args
}

var _ ports.SeriesSink = (*TimescaleSink)(nil)
