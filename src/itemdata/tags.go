package itemdata

import (
	"context"
	"errors"
	"strings"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
	"mvdan.cc/xurls/v2"
)

// ensureTagID interns a tag by name (hashtags) or name+url (mentions).
func ensureTagID(ctx context.Context, conn db.ConnOrTx, name string, url string) (int, error) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "#")
	var urlVal *string
	if url != "" {
		urlVal = &url
	}

	id, err := db.QueryOneScalar[int](ctx, conn,
		`
		---- look up tag
		SELECT id FROM tag WHERE name = $1 AND url IS NOT DISTINCT FROM $2
		`,
		name, urlVal,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to look up tag %s", name)
	}

	id, err = db.QueryOneScalar[int](ctx, conn,
		`
		---- create tag
		INSERT INTO tag (name, url)
		VALUES ($1, $2)
		ON CONFLICT (name, url) DO NOTHING
		RETURNING id
		`,
		name, urlVal,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to create tag %s", name)
	}

	id, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT id FROM tag WHERE name = $1 AND url IS NOT DISTINCT FROM $2`,
		name, urlVal,
	)
	if err != nil {
		return 0, oops.New(err, "failed to re-fetch tag %s after insert race", name)
	}
	return id, nil
}

// storeTags records the hashtags and structured mentions delivered with a
// record against its uri. Tag associations are shared across all copies of
// the item, so re-ingestion is a no-op.
func storeTags(ctx context.Context, conn db.ConnOrTx, uriID int, rec *models.ItemRecord) error {
	associate := func(tagID int, tagType models.TagType) error {
		_, err := conn.Exec(ctx,
			`
			---- associate tag with item
			INSERT INTO item_tag (uri_id, tag_id, type)
			VALUES ($1, $2, $3)
			ON CONFLICT (uri_id, tag_id, type) DO NOTHING
			`,
			uriID, tagID, tagType,
		)
		if err != nil {
			return oops.New(err, "failed to associate tag %d with uri %d", tagID, uriID)
		}
		return nil
	}

	for _, hashtag := range rec.Hashtags {
		tagID, err := ensureTagID(ctx, conn, hashtag, "")
		if err != nil {
			return err
		}
		if err := associate(tagID, models.TagHashtag); err != nil {
			return err
		}
	}

	mentions := rec.Mentions
	if len(mentions) == 0 {
		// Some networks deliver mentions only as bare profile urls in the
		// body. Reconstruct what we can against known contacts.
		repaired, err := repairMentions(ctx, conn, rec.Body)
		if err != nil {
			return err
		}
		mentions = repaired
	}

	for _, mention := range mentions {
		tagType := mention.Type
		if !tagType.IsMention() {
			tagType = models.TagMention
		}
		tagID, err := ensureTagID(ctx, conn, mention.Name, mention.URL)
		if err != nil {
			return err
		}
		if err := associate(tagID, tagType); err != nil {
			return err
		}
	}

	return nil
}

var strictURLs = xurls.Strict()

// repairMentions extracts urls from a raw body and keeps the ones that
// resolve to known actors. These become implicit mentions: the author linked
// somebody, the protocol just failed to say so in a structured way.
func repairMentions(ctx context.Context, conn db.ConnOrTx, body string) ([]models.TagRecord, error) {
	urls := strictURLs.FindAllString(body, -1)
	if len(urls) == 0 {
		return nil, nil
	}

	var mentions []models.TagRecord
	seen := map[string]bool{}
	for _, u := range urls {
		nurl := NormalizeLink(u)
		if seen[nurl] {
			continue
		}
		seen[nurl] = true

		contact, err := db.QueryOne[models.Contact](ctx, conn,
			`
			---- match body url against known actors
			SELECT $columns FROM contact WHERE uid = 0 AND nurl = $1 AND NOT deleted
			`,
			nurl,
		)
		if err != nil {
			if errors.Is(err, db.NotFound) {
				continue
			}
			return nil, oops.New(err, "failed to match url %s against contacts", u)
		}

		mentions = append(mentions, models.TagRecord{
			Name: contact.Name,
			URL:  contact.URL,
			Type: models.TagImplicitMention,
		})
	}
	return mentions, nil
}

// fetchHashtagIDs returns the ids of the plain hashtags on an item, for
// tag-subscription fan-out.
func fetchHashtagIDs(ctx context.Context, conn db.ConnOrTx, uriID int) ([]int, error) {
	ids, err := db.QueryScalar[int](ctx, conn,
		`
		---- fetch item hashtags
		SELECT tag_id FROM item_tag WHERE uri_id = $1 AND type = $2
		`,
		uriID, models.TagHashtag,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch hashtags for uri %d", uriID)
	}
	return ids, nil
}
