package store

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    op TEXT NOT NULL,
    target TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    success BOOLEAN NOT NULL,
    detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_operations_op ON operations(op);
CREATE INDEX IF NOT EXISTS idx_operations_started ON operations(started_at);
`
