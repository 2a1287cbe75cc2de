package itemdata

import (
	"context"
	"errors"
	"time"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
	"git.thicket.social/thicket/thicket/src/queue"
)

/*
Delete marks an item deleted and cascades: a thread root takes its children
and its summary row with it, and when the last subscriber copy of a uri goes
away the shared uid=0 shadow follows. Deletion is a soft mark on the item
row; shared side tables (content, tags, permission sets) are reclaimed once
nothing live references them.
*/
func (p *Pipeline) Delete(ctx context.Context, itemID int) error {
	item, err := db.QueryOne[models.Item](ctx, p.Conn,
		`
		---- fetch item for deletion
		SELECT $columns FROM item WHERE id = $1
		`,
		itemID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to fetch item %d for deletion", itemID)
	}
	if item.Deleted {
		return nil
	}

	if item.IsThreadRoot() {
		childIDs, err := db.QueryScalar[int](ctx, p.Conn,
			`
			---- enumerate children for cascade
			SELECT id FROM item WHERE parent = $1 AND id <> $1 AND NOT deleted
			`,
			item.ID,
		)
		if err != nil {
			return oops.New(err, "failed to enumerate children of item %d", item.ID)
		}
		for _, childID := range childIDs {
			if err := p.Delete(ctx, childID); err != nil {
				return err
			}
		}

		_, err = p.Conn.Exec(ctx,
			`DELETE FROM thread WHERE iid = $1`,
			item.ID,
		)
		if err != nil {
			return oops.New(err, "failed to remove thread row for item %d", item.ID)
		}
	}

	now := time.Now()
	_, err = p.Conn.Exec(ctx,
		`
		---- mark item deleted
		UPDATE item
		SET deleted = TRUE, visible = FALSE, changed = $2, edited = $2
		WHERE id = $1
		`,
		item.ID, now,
	)
	if err != nil {
		return oops.New(err, "failed to mark item %d deleted", item.ID)
	}

	if err := reclaimSharedData(ctx, p.Conn, item); err != nil {
		return err
	}

	if item.UID > 0 {
		if err := p.removeOrphanedShadow(ctx, item.URIID); err != nil {
			return err
		}
	} else {
		// The shadow was the uri's claim to global visibility.
		_, err = p.Conn.Exec(ctx,
			`UPDATE item SET global = FALSE WHERE uri_id = $1`,
			item.URIID,
		)
		if err != nil {
			return oops.New(err, "failed to clear global flag for uri %d", item.URIID)
		}
	}

	if item.Origin {
		if err := queue.Enqueue(ctx, p.Conn, queue.JobNotifyDelete, models.PriorityHigh, item.ID); err != nil {
			return err
		}
	}

	logging.ExtractLogger(ctx).Info().
		Int("item", item.ID).
		Int("uid", item.UID).
		Msg("deleted item")
	return nil
}

/*
DeleteForUser handles a subscriber removing an item from their view. Their
own copy is truly deleted; somebody else's copy (including the shared shadow)
is merely hidden for them, since other users still see it.
*/
func (p *Pipeline) DeleteForUser(ctx context.Context, itemID int, uid int) error {
	item, err := db.QueryOne[models.Item](ctx, p.Conn,
		`SELECT $columns FROM item WHERE id = $1`,
		itemID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to fetch item %d", itemID)
	}

	if item.UID == uid && uid > 0 {
		return p.Delete(ctx, itemID)
	}

	_, err = p.Conn.Exec(ctx,
		`
		---- hide item for user
		INSERT INTO user_item (uri_id, uid, hidden)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (uri_id, uid) DO UPDATE SET hidden = TRUE
		`,
		item.URIID, uid,
	)
	if err != nil {
		return oops.New(err, "failed to hide item %d for user %d", item.ID, uid)
	}
	return nil
}

// removeOrphanedShadow deletes the uid=0 copy of a uri once no subscriber
// copy remains. The shadow exists to index what somebody on this site can
// see; with the last holder gone it indexes nothing.
func (p *Pipeline) removeOrphanedShadow(ctx context.Context, uriID int) error {
	holders, err := db.QueryOneScalar[int](ctx, p.Conn,
		`SELECT COUNT(*) FROM item WHERE uri_id = $1 AND uid > 0 AND NOT deleted`,
		uriID,
	)
	if err != nil {
		return oops.New(err, "failed to count holders of uri %d", uriID)
	}
	if holders > 0 {
		return nil
	}

	shadowID, err := db.QueryOneScalar[int](ctx, p.Conn,
		`SELECT id FROM item WHERE uri_id = $1 AND uid = 0 AND NOT deleted`,
		uriID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to look up shadow of uri %d", uriID)
	}
	return p.Delete(ctx, shadowID)
}

// reclaimSharedData removes content, tag associations and the permission set
// of a deleted item once no live item references them.
func reclaimSharedData(ctx context.Context, conn db.ConnOrTx, item *models.Item) error {
	liveRefs, err := db.QueryOneScalar[int](ctx, conn,
		`SELECT COUNT(*) FROM item WHERE uri_id = $1 AND NOT deleted`,
		item.URIID,
	)
	if err != nil {
		return oops.New(err, "failed to count live references to uri %d", item.URIID)
	}
	if liveRefs == 0 {
		_, err = conn.Exec(ctx,
			`DELETE FROM item_content WHERE uri_id = $1`,
			item.URIID,
		)
		if err != nil {
			return oops.New(err, "failed to reclaim content for uri %d", item.URIID)
		}
		_, err = conn.Exec(ctx,
			`DELETE FROM item_tag WHERE uri_id = $1`,
			item.URIID,
		)
		if err != nil {
			return oops.New(err, "failed to reclaim tag associations for uri %d", item.URIID)
		}
	}

	if item.PermissionSetID != nil {
		psRefs, err := db.QueryOneScalar[int](ctx, conn,
			`SELECT COUNT(*) FROM item WHERE psid = $1 AND NOT deleted`,
			*item.PermissionSetID,
		)
		if err != nil {
			return oops.New(err, "failed to count references to permission set %d", *item.PermissionSetID)
		}
		if psRefs == 0 {
			_, err = conn.Exec(ctx,
				`DELETE FROM permission_set WHERE id = $1`,
				*item.PermissionSetID,
			)
			if err != nil {
				return oops.New(err, "failed to reclaim permission set %d", *item.PermissionSetID)
			}
		}
	}
	return nil
}
