package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	idempotency_key TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price TEXT NOT NULL,
	order_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	position INTEGER NOT NULL,
	realized_pnl TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	time DATETIME NOT NULL,
	trading_day TEXT NOT NULL,
	kind TEXT NOT NULL,
	state TEXT NOT NULL,
	reason TEXT NOT NULL,
	equity TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
`
