package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS todos (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	text             TEXT NOT NULL,
	more_content     TEXT NOT NULL DEFAULT '',
	image_ref        TEXT,
	scheduled_date   TEXT NOT NULL,
	completed        INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	original_todo_id TEXT NOT NULL DEFAULT '',
	independent_edit INTEGER NOT NULL DEFAULT 0 CHECK(independent_edit IN (0, 1)),
	from_pool        INTEGER NOT NULL DEFAULT 0 CHECK(from_pool IN (0, 1)),
	order_index      INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_todos_owner_date ON todos(owner_id, scheduled_date);
CREATE INDEX IF NOT EXISTS idx_todos_original ON todos(original_todo_id);
CREATE INDEX IF NOT EXISTS idx_todos_image_ref ON todos(owner_id, image_ref);

CREATE TABLE IF NOT EXISTS pool_items (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	pool             TEXT NOT NULL CHECK(pool IN ('delegated', 'global')),
	text             TEXT NOT NULL,
	more_content     TEXT NOT NULL DEFAULT '',
	image_ref        TEXT,
	completed        INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	original_todo_id TEXT NOT NULL DEFAULT '',
	order_index      INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pool_items_owner_pool ON pool_items(owner_id, pool);
CREATE INDEX IF NOT EXISTS idx_pool_items_original ON pool_items(original_todo_id);
CREATE INDEX IF NOT EXISTS idx_pool_items_image_ref ON pool_items(owner_id, image_ref);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS shared_tables (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS shared_members (
	shared_table_id TEXT NOT NULL REFERENCES shared_tables(id) ON DELETE CASCADE,
	email           TEXT NOT NULL,
	joined_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (shared_table_id, email)
);

CREATE TABLE IF NOT EXISTS invitations (
	id              TEXT PRIMARY KEY,
	shared_table_id TEXT NOT NULL REFERENCES shared_tables(id) ON DELETE CASCADE,
	inviter_id      TEXT NOT NULL,
	invitee_email   TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'accepted', 'declined')),
	expires_at      DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_invitations_table ON invitations(shared_table_id);
CREATE INDEX IF NOT EXISTS idx_invitations_email ON invitations(invitee_email);

CREATE TABLE IF NOT EXISTS shared_todos (
	id                   TEXT PRIMARY KEY,
	shared_table_id      TEXT NOT NULL REFERENCES shared_tables(id) ON DELETE CASCADE,
	creator_id           TEXT NOT NULL,
	text                 TEXT NOT NULL,
	more_content         TEXT NOT NULL DEFAULT '',
	image_ref            TEXT,
	completed            INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	completed_by_user_id TEXT,
	completed_at         DATETIME,
	order_index          INTEGER NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_shared_todos_table ON shared_todos(shared_table_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	date       TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_owner_read ON notifications(owner_id, read);
CREATE INDEX IF NOT EXISTS idx_notifications_owner_date ON notifications(owner_id, date);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
