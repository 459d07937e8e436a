package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type CSV struct {
	fills  *csv.Writer
	events *csv.Writer
	ff, ef *os.File
}

var (
	fillsHeader  = []string{"time", "instrument", "side", "quantity", "price", "order_id", "idempotency_key", "reason", "position", "realized_pnl"}
	eventsHeader = []string{"time", "trading_day", "kind", "state", "reason", "equity"}
)

// NewCSVDir writes fills.csv and events.csv under dir, creating it if needed.
func NewCSVDir(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return NewCSV(filepath.Join(dir, "fills.csv"), filepath.Join(dir, "events.csv"))
}

func NewCSV(fillsPath, eventsPath string) (*CSV, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(eventsPath)
	if err != nil {
		_ = ff.Close()
		return nil, err
	}

	j := &CSV{fills: csv.NewWriter(ff), events: csv.NewWriter(ef), ff: ff, ef: ef}
	if err := j.write(j.fills, fillsHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.events, eventsHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordFill(f FillRecord) error {
	return j.write(j.fills, []string{
		f.Time.UTC().Format(time.RFC3339Nano),
		f.Instrument,
		f.Side,
		strconv.FormatInt(f.Quantity, 10),
		f.Price.String(),
		f.OrderID,
		f.IdempotencyKey,
		f.Reason,
		strconv.FormatInt(f.Position, 10),
		f.RealizedPnL.String(),
	})
}

func (j *CSV) RecordEvent(e EventRecord) error {
	return j.write(j.events, []string{
		e.Time.UTC().Format(time.RFC3339Nano),
		e.TradingDay,
		e.Kind,
		e.State,
		e.Reason,
		e.Equity.String(),
	})
}

func (j *CSV) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.fills.Flush()
	j.events.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	if err := j.events.Error(); err != nil {
		return err
	}
	if err := j.ff.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}
