package migrations

import (
	"context"
	"time"

	"git.thicket.social/thicket/thicket/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddLegacyContentColumns{})
}

type AddLegacyContentColumns struct{}

func (m AddLegacyContentColumns) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC))
}

func (m AddLegacyContentColumns) Name() string {
	return "AddLegacyContentColumns"
}

func (m AddLegacyContentColumns) Description() string {
	return "Adds the wide legacy content columns to item for pre-split readers"
}

func (m AddLegacyContentColumns) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		ALTER TABLE item
			ADD COLUMN legacy_title TEXT NOT NULL DEFAULT '',
			ADD COLUMN legacy_body TEXT NOT NULL DEFAULT '',
			ADD COLUMN legacy_rendered_html TEXT NOT NULL DEFAULT '';
	`)
	return err
}

func (m AddLegacyContentColumns) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		ALTER TABLE item
			DROP COLUMN legacy_title,
			DROP COLUMN legacy_body,
			DROP COLUMN legacy_rendered_html;
	`)
	return err
}
