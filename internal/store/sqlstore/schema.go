package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// migrations run in order on every Open. Each statement is idempotent.
// A migration with ifMissing set only runs when that column does not exist
// yet, which upgrades tables created before comment and link were added.
var migrations = []struct {
	name      string
	stmt      string
	ifMissing column
}{
	{
		name: "create pulse_objects",
		stmt: `CREATE TABLE IF NOT EXISTS pulse_objects (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			external_id TEXT,
			title       TEXT NOT NULL,
			metadata    TEXT,
			created_at  BIGINT NOT NULL
		)`,
	},
	{
		name: "create pulses",
		stmt: `CREATE TABLE IF NOT EXISTS pulses (
			id            TEXT PRIMARY KEY,
			object_id     TEXT NOT NULL REFERENCES pulse_objects(id),
			latitude      DOUBLE NOT NULL,
			longitude     DOUBLE NOT NULL,
			reaction_type TEXT NOT NULL DEFAULT 'HEART',
			comment       TEXT,
			link          TEXT,
			created_at    BIGINT NOT NULL
		)`,
	},
	{
		name:      "add pulses.comment",
		stmt:      `ALTER TABLE pulses ADD COLUMN IF NOT EXISTS comment TEXT`,
		ifMissing: column{table: "pulses", name: "comment"},
	},
	{
		name:      "add pulses.link",
		stmt:      `ALTER TABLE pulses ADD COLUMN IF NOT EXISTS link TEXT`,
		ifMissing: column{table: "pulses", name: "link"},
	},
	{
		name: "index pulses by time",
		stmt: `CREATE INDEX IF NOT EXISTS idx_pulses_created_at ON pulses(created_at)`,
	},
	{
		name: "index pulses by location",
		stmt: `CREATE INDEX IF NOT EXISTS idx_pulses_location ON pulses(latitude, longitude)`,
	},
	{
		name: "index objects by type",
		stmt: `CREATE INDEX IF NOT EXISTS idx_objects_type ON pulse_objects(type)`,
	},
	{
		name: "unique external id per type",
		stmt: `CREATE UNIQUE INDEX IF NOT EXISTS idx_objects_type_external ON pulse_objects(type, external_id)`,
	},
}

type column struct {
	table string
	name  string
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if m.ifMissing.name != "" {
			found, err := hasColumn(ctx, db, m.ifMissing)
			if err != nil {
				return fmt.Errorf("migration %q: %w", m.name, err)
			}
			if found {
				continue
			}
		}
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
	}
	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, c column) (bool, error) {
	return exists(ctx, db, "information_schema.columns", sq.Eq{
		"table_name":  c.table,
		"column_name": c.name,
	})
}
