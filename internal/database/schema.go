package database

// schema is the single source of truth for the application tables.
// Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    username            TEXT NOT NULL UNIQUE,
    email               TEXT NOT NULL UNIQUE,
    password_hash       TEXT NOT NULL,
    theme               TEXT NOT NULL DEFAULT 'light',
    confirmed           INTEGER NOT NULL DEFAULT 0,
    confirmed_on        TIMESTAMP,
    subscription_status TEXT NOT NULL DEFAULT 'free',
    payment_status      TEXT NOT NULL DEFAULT 'none',
    forecast_attempts   INTEGER NOT NULL DEFAULT 0,
    created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS watchlists (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    stocks     TEXT NOT NULL DEFAULT '[]',
    is_default INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, name)
);

CREATE INDEX IF NOT EXISTS idx_watchlists_user ON watchlists(user_id);

CREATE TABLE IF NOT EXISTS stock_kpis (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol         TEXT NOT NULL,
    pe_ratio       REAL,
    pb_ratio       REAL,
    beta           REAL,
    dividend_yield REAL,
    market_cap     REAL,
    roe            REAL,
    debt_to_equity REAL,
    price_momentum REAL,
    risk_tolerance TEXT NOT NULL,
    batch_id       INTEGER NOT NULL,
    last_updated   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stock_kpis_batch ON stock_kpis(batch_id, risk_tolerance);

CREATE TABLE IF NOT EXISTS cache (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
`
