package sqlite

// migration is one versioned schema step, recorded in
// paywall_schema_migrations once applied.
type migration struct {
	Version string
	Name    string
	Up      string
}

// migrations mirrors the PostgreSQL schema with SQLite types. Times are
// stored in TIMESTAMP columns, money amounts as integer minor units, and
// list/map fields as JSON text. The composite primary keys carry the
// load-bearing uniqueness guarantees.
var migrations = []migration{
	{
		Version: "20240101000001",
		Name:    "create_paywall_posts",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_posts (
    id             TEXT PRIMARY KEY,
    creator_id     TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    body           TEXT NOT NULL DEFAULT '',
    media_url      TEXT NOT NULL DEFAULT '',
    visibility     TEXT NOT NULL DEFAULT 'free',
    price_cents    INTEGER NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    deleted        INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paywall_posts_creator ON paywall_posts (creator_id, created_at);
`,
	},
	{
		Version: "20240101000002",
		Name:    "create_paywall_profiles",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_profiles (
    user_id           TEXT PRIMARY KEY,
    role              TEXT NOT NULL DEFAULT 'fan',
    blocked_countries TEXT NOT NULL DEFAULT '[]',
    banned            INTEGER NOT NULL DEFAULT 0,
    age_verified      INTEGER NOT NULL DEFAULT 0,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);
`,
	},
	{
		Version: "20240101000003",
		Name:    "create_paywall_subscriptions",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_subscriptions (
    id            TEXT NOT NULL,
    subscriber_id TEXT NOT NULL,
    creator_id    TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'active',
    starts_at     TIMESTAMP NOT NULL,
    ends_at       TIMESTAMP NOT NULL,
    canceled_at   TIMESTAMP,
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL,
    PRIMARY KEY (subscriber_id, creator_id)
);

CREATE INDEX IF NOT EXISTS idx_paywall_subs_creator ON paywall_subscriptions (creator_id, status);
CREATE INDEX IF NOT EXISTS idx_paywall_subs_expiry ON paywall_subscriptions (status, ends_at);
`,
	},
	{
		Version: "20240101000004",
		Name:    "create_paywall_unlocks",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_unlocks (
    id             TEXT NOT NULL,
    user_id        TEXT NOT NULL,
    post_id        TEXT NOT NULL,
    price_cents    INTEGER NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    event_id       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, post_id)
);

CREATE INDEX IF NOT EXISTS idx_paywall_unlocks_user ON paywall_unlocks (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_paywall_unlocks_post ON paywall_unlocks (post_id);
`,
	},
	{
		Version: "20240101000005",
		Name:    "create_paywall_accounts",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_accounts (
    id              TEXT NOT NULL,
    user_id         TEXT PRIMARY KEY,
    currency        TEXT NOT NULL DEFAULT '',
    available_cents INTEGER NOT NULL DEFAULT 0 CHECK (available_cents >= 0),
    pending_cents   INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL
);
`,
	},
	{
		Version: "20240101000006",
		Name:    "create_paywall_transactions",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_transactions (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    kind            TEXT NOT NULL DEFAULT '',
    amount_cents    INTEGER NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'completed',
    event_id        TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paywall_txns_user ON paywall_transactions (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_paywall_txns_event ON paywall_transactions (event_id);
`,
	},
}
