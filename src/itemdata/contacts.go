package itemdata

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// NormalizeLink reduces a profile url to the form used as the cross-protocol
// join key: lowercased, scheme collapsed to http, no trailing slash.
func NormalizeLink(link string) string {
	link = strings.ToLower(strings.TrimSpace(link))
	link = strings.Replace(link, "https://", "http://", 1)
	return strings.TrimRight(link, "/")
}

func hostOfLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// EnsureActorContact returns the id of the public (uid=0) contact record for
// a remote actor, creating a stub row when the actor was never seen before.
// Concurrent creation resolves through the unique (uid, nurl) constraint.
func EnsureActorContact(
	ctx context.Context,
	conn db.ConnOrTx,
	link, name, avatar string,
	network models.Network,
) (int, error) {
	nurl := NormalizeLink(link)
	if nurl == "" {
		return 0, oops.New(nil, "cannot ensure a contact without a profile url")
	}

	id, err := db.QueryOneScalar[int](ctx, conn,
		`
		---- look up public contact
		SELECT id FROM contact WHERE uid = 0 AND nurl = $1 AND NOT deleted
		`,
		nurl,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to look up contact %s", nurl)
	}

	id, err = db.QueryOneScalar[int](ctx, conn,
		`
		---- create public contact
		INSERT INTO contact (uid, url, nurl, name, avatar, network, rel, last_updated)
		VALUES (0, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (uid, nurl) DO NOTHING
		RETURNING id
		`,
		link, nurl, name, avatar, network, models.RelNone,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to create contact %s", nurl)
	}

	id, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT id FROM contact WHERE uid = 0 AND nurl = $1 AND NOT deleted`,
		nurl,
	)
	if err != nil {
		return 0, oops.New(err, "failed to re-fetch contact %s after insert race", nurl)
	}
	return id, nil
}

func FetchContact(ctx context.Context, conn db.ConnOrTx, id int) (*models.Contact, error) {
	return db.QueryOne[models.Contact](ctx, conn,
		`
		---- fetch contact
		SELECT $columns FROM contact WHERE id = $1
		`,
		id,
	)
}

// ContactByNurl finds a specific user's subscription edge to an actor.
func ContactByNurl(ctx context.Context, conn db.ConnOrTx, uid int, nurl string) (*models.Contact, error) {
	return db.QueryOne[models.Contact](ctx, conn,
		`
		---- fetch contact edge by nurl
		SELECT $columns
		FROM contact
		WHERE uid = $1 AND (nurl = $2 OR alias IN ($2, $3)) AND NOT deleted
		ORDER BY id
		LIMIT 1
		`,
		uid, nurl, strings.Replace(nurl, "http://", "https://", 1),
	)
}

func SelfContact(ctx context.Context, conn db.ConnOrTx, uid int) (*models.Contact, error) {
	return db.QueryOne[models.Contact](ctx, conn,
		`
		---- fetch self contact
		SELECT $columns FROM contact WHERE uid = $1 AND self
		`,
		uid,
	)
}

// EnsureAvatarCached makes sure the contact row has an avatar before the item
// becomes visible, so display never depends on a live fetch. An already-cached
// avatar is left alone.
func EnsureAvatarCached(ctx context.Context, conn db.ConnOrTx, contactID int, avatarURL string) error {
	if avatarURL == "" {
		return nil
	}
	_, err := conn.Exec(ctx,
		`
		---- cache contact avatar
		UPDATE contact
		SET avatar = $2, avatar_date = NOW()
		WHERE id = $1 AND (avatar = '' OR avatar_date IS NULL)
		`,
		contactID, avatarURL,
	)
	if err != nil {
		return oops.New(err, "failed to cache avatar for contact %d", contactID)
	}
	return nil
}

// UnarchiveContact clears the archived state of a contact that just delivered
// something. An archived contact that speaks again is evidently alive.
func UnarchiveContact(ctx context.Context, conn db.ConnOrTx, contactID int) error {
	_, err := conn.Exec(ctx,
		`
		---- unarchive contact
		UPDATE contact
		SET archived_at = NULL, last_updated = NOW()
		WHERE id = $1 AND archived_at IS NOT NULL
		`,
		contactID,
	)
	if err != nil {
		return oops.New(err, "failed to unarchive contact %d", contactID)
	}
	return nil
}
