package database

type migration struct {
	version int
	sql     string
}

// migrations are applied in order. The SQL is shared by postgres and sqlite.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS notifications (
	id                   TEXT PRIMARY KEY,
	recipient            TEXT NOT NULL,
	sender               TEXT NOT NULL,
	type                 TEXT NOT NULL,
	title                TEXT NOT NULL,
	message              TEXT NOT NULL,
	related_task         TEXT NOT NULL DEFAULT '',
	related_comment      TEXT NOT NULL DEFAULT '',
	related_organization TEXT NOT NULL DEFAULT '',
	related_project      TEXT NOT NULL DEFAULT '',
	read                 BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS notifications_recipient_created_idx
	ON notifications (recipient, created_at);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS notifications_recipient_unread_idx
	ON notifications (recipient, read);
`,
	},
}
