package postgres

// migration is one versioned schema step. Versions are applied in order and
// recorded in paywall_schema_migrations so reruns are no-ops.
type migration struct {
	Version string
	Name    string
	Up      string
}

// migrations is the ordered schema for the Paywall store. The unique
// indexes are load-bearing: (user_id, post_id) on unlocks is the
// idempotency anchor for the unlock flow, (subscriber_id, creator_id) on
// subscriptions backs upsert renewal, and user_id on accounts makes lazy
// wallet creation race-free.
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
    price_cents    BIGINT NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    deleted        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paywall_posts_creator ON paywall_posts (creator_id, created_at);
CREATE INDEX IF NOT EXISTS idx_paywall_posts_visibility ON paywall_posts (creator_id, visibility);
`,
	},
	{
		Version: "20240101000002",
		Name:    "create_paywall_profiles",
		Up: `
CREATE TABLE IF NOT EXISTS paywall_profiles (
    user_id           TEXT PRIMARY KEY,
    role              TEXT NOT NULL DEFAULT 'fan',
    blocked_countries TEXT[] NOT NULL DEFAULT '{}',
    banned            BOOLEAN NOT NULL DEFAULT FALSE,
    age_verified      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    starts_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ends_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    canceled_at   TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
    price_cents    BIGINT NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    event_id       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
    available_cents BIGINT NOT NULL DEFAULT 0 CHECK (available_cents >= 0),
    pending_cents   BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    amount_cents    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'completed',
    event_id        TEXT NOT NULL DEFAULT '',
    metadata        JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paywall_txns_user ON paywall_transactions (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_paywall_txns_event ON paywall_transactions (event_id);
`,
	},
}
