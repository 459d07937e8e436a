package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordFill ignores a fill whose idempotency key is already stored.
func (j *SQLite) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO fills
		(idempotency_key, time, instrument, side, quantity, price, order_id, reason, position, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.IdempotencyKey, f.Time.UTC(), f.Instrument, f.Side, f.Quantity,
		f.Price.String(), f.OrderID, f.Reason, f.Position, f.RealizedPnL.String(),
	)
	return err
}

func (j *SQLite) RecordEvent(e EventRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO events
		(time, trading_day, kind, state, reason, equity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.TradingDay, e.Kind, e.State, e.Reason, e.Equity.String(),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
