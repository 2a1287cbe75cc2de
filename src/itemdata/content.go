package itemdata

import (
	"context"
	"errors"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/metrics"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
	"git.thicket.social/thicket/thicket/src/render"
)

// upsertContent persists the large text fields of a record into the shared
// content row for its uri. The row is created on first sight and updated in
// place afterward; every copy of the item references it. Rendering is
// skipped when the stored cache hash still matches the raw body.
func upsertContent(
	ctx context.Context,
	conn db.ConnOrTx,
	uriID int,
	rec *models.ItemRecord,
	ignoreRenderCache bool,
) (*models.ItemContent, error) {
	dialect := render.DialectForNetwork(rec.Network)
	raw := rec.RawBody
	if raw == "" {
		raw = rec.Body
	}
	hash := render.CacheHash(dialect, raw)

	existing, err := db.QueryOne[models.ItemContent](ctx, conn,
		`
		---- fetch existing content
		SELECT $columns FROM item_content WHERE uri_id = $1
		`,
		uriID,
	)
	if err != nil && !errors.Is(err, db.NotFound) {
		return nil, oops.New(err, "failed to fetch content for uri %d", uriID)
	}

	var rendered string
	var language string
	if existing != nil && existing.RenderedHash == hash && !ignoreRenderCache {
		metrics.RenderCacheHits.Inc()
		rendered = existing.Rendered
		language = existing.Language
	} else {
		metrics.RenderCacheMisses.Inc()
		rendered = render.ToHTML(rec.Body, dialect)
		// Full language detection belongs to a protocol adapter that knows
		// the origin; we only record what we were told.
		language = "und"
	}

	content := &models.ItemContent{
		URIID:        uriID,
		Title:        rec.Title,
		RawBody:      raw,
		Body:         rec.Body,
		Rendered:     rendered,
		RenderedHash: hash,
		Language:     language,
		Plink:        rec.Plink,
	}

	_, err = conn.Exec(ctx,
		`
		---- upsert item content
		INSERT INTO item_content (uri_id, title, raw_body, body, rendered_html, rendered_hash, language, plink, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '')
		ON CONFLICT (uri_id) DO UPDATE SET
			title = EXCLUDED.title,
			raw_body = EXCLUDED.raw_body,
			body = EXCLUDED.body,
			rendered_html = EXCLUDED.rendered_html,
			rendered_hash = EXCLUDED.rendered_hash,
			language = EXCLUDED.language,
			plink = EXCLUDED.plink
		`,
		content.URIID, content.Title, content.RawBody, content.Body,
		content.Rendered, content.RenderedHash, content.Language, content.Plink,
	)
	if err != nil {
		return nil, oops.New(err, "failed to upsert content for uri %d", uriID)
	}

	return content, nil
}

// mirrorLegacyColumns copies the split content fields back onto the wide
// legacy columns of the item row, for installations whose readers predate
// the content split. This is a transitional adapter; the core always reads
// the split layout.
func mirrorLegacyColumns(ctx context.Context, conn db.ConnOrTx, itemID int, content *models.ItemContent) error {
	_, err := conn.Exec(ctx,
		`
		---- mirror content onto legacy columns
		UPDATE item
		SET
			legacy_title = $2,
			legacy_body = $3,
			legacy_rendered_html = $4
		WHERE id = $1
		`,
		itemID, content.Title, content.Body, content.Rendered,
	)
	if err != nil {
		return oops.New(err, "failed to mirror legacy columns for item %d", itemID)
	}
	return nil
}

// FetchRendered serves the render cache to presentation layers.
func FetchRendered(ctx context.Context, conn db.ConnOrTx, uriID int) (string, error) {
	return db.QueryOneScalar[string](ctx, conn,
		`
		---- fetch rendered content
		SELECT rendered_html FROM item_content WHERE uri_id = $1
		`,
		uriID,
	)
}
