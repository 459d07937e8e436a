package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListFillsBetween returns fills with time in [start, end), oldest first.
func (j *SQLite) ListFillsBetween(start, end time.Time) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT idempotency_key, time, instrument, side, quantity, price, order_id, reason, position, realized_pnl
		FROM fills
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var (
			rec             FillRecord
			price, realized string
		)
		if err := rows.Scan(
			&rec.IdempotencyKey,
			&rec.Time,
			&rec.Instrument,
			&rec.Side,
			&rec.Quantity,
			&price,
			&rec.OrderID,
			&rec.Reason,
			&rec.Position,
			&realized,
		); err != nil {
			return nil, err
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if rec.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEventsBetween returns events with time in [start, end), oldest first.
// An empty kind matches every event.
func (j *SQLite) ListEventsBetween(start, end time.Time, kind string) ([]EventRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, trading_day, kind, state, reason, equity
		FROM events
		WHERE time >= ? AND time < ? AND (? = '' OR kind = ?)
		ORDER BY time ASC`, start.UTC(), end.UTC(), kind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec    EventRecord
			equity string
		)
		if err := rows.Scan(
			&rec.Time,
			&rec.TradingDay,
			&rec.Kind,
			&rec.State,
			&rec.Reason,
			&equity,
		); err != nil {
			return nil, err
		}
		if rec.Equity, err = decimal.NewFromString(equity); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RealizedByDay maps each UTC day with fills in [start, end) to the session
// realized P&L recorded with its last fill.
func (j *SQLite) RealizedByDay(start, end time.Time) (map[string]decimal.Decimal, error) {
	fills, err := j.ListFillsBetween(start, end)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, f := range fills {
		out[f.Time.UTC().Format(time.DateOnly)] = f.RealizedPnL
	}
	return out, nil
}
