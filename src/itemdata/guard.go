package itemdata

import (
	"context"
	"errors"
	"time"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// Rejection reasons, used as metric labels and log fields.
const (
	RejectEmptyContent       = "empty-content"
	RejectAccountUnusable    = "account-unusable"
	RejectBlockedActor       = "blocked-actor"
	RejectBlockedServer      = "blocked-server"
	RejectStale              = "stale"
	RejectNoActor            = "no-actor"
	RejectSelfFollow         = "self-follow"
	RejectDuplicateFollow    = "duplicate-follow"
	RejectUnresolvableParent = "unresolvable-parent"
)

// Duplicate rules, in the order they are checked.
const (
	DupGuidNetworkUID = "guid-network-uid"
	DupURIUID         = "uri-uid"
	DupGuidUID        = "guid-uid"
	DupBodyHeuristic  = "body-heuristic"
	DupPublicShadow   = "public-shadow"
	DupInsertRace     = "insert-race"
)

// policyRejectReason covers the validity checks that need no database state
// beyond the already-fetched target user. Empty string means the record
// passes. Activity verbs carry their verb as the body, so the empty-content
// rule still holds for them.
func policyRejectReason(rec *models.ItemRecord, user *models.User, now time.Time) string {
	if rec.IsEmpty() {
		return RejectEmptyContent
	}
	if user != nil {
		if !user.IsUsable(now) {
			return RejectAccountUnusable
		}
		if recordTooStale(rec, user.RetentionDays, now) {
			return RejectStale
		}
	}
	return ""
}

// recordTooStale applies the per-user retention window. Only pushed/relayed
// items are subject to it; our own posts and anything we actively pulled are
// always welcome.
func recordTooStale(rec *models.ItemRecord, retentionDays int, now time.Time) bool {
	if retentionDays <= 0 || !rec.Pushed || rec.Origin {
		return false
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	created := rec.Created
	if created.IsZero() {
		return false
	}
	return created.Before(cutoff)
}

type duplicateMatch struct {
	ID   int
	Rule string
}

// findDuplicate runs the ordered duplicate checks for a record. The author
// contact must already be resolved, since the body heuristic for unreliable
// networks keys on the sending actor.
func findDuplicate(
	ctx context.Context,
	conn db.ConnOrTx,
	rec *models.ItemRecord,
	uriID int,
	guid string,
	authorID int,
) (*duplicateMatch, error) {
	check := func(rule string, query string, args ...any) (*duplicateMatch, error) {
		id, err := db.QueryOneScalar[int](ctx, conn, query, args...)
		if err == nil {
			return &duplicateMatch{ID: id, Rule: rule}, nil
		} else if !errors.Is(err, db.NotFound) {
			return nil, oops.New(err, "duplicate check %s failed", rule)
		}
		return nil, nil
	}

	match, err := check(DupGuidNetworkUID,
		`
		---- dup check: guid within network and scope
		SELECT id FROM item WHERE guid = $1 AND network = $2 AND uid = $3 LIMIT 1
		`,
		guid, rec.Network, rec.UID,
	)
	if match != nil || err != nil {
		return match, err
	}

	match, err = check(DupURIUID,
		`
		---- dup check: uri within scope, federated networks
		SELECT id FROM item WHERE uri_id = $1 AND uid = $2 AND network = ANY($3) LIMIT 1
		`,
		uriID, rec.UID, models.FederatedNetworks,
	)
	if match != nil || err != nil {
		return match, err
	}

	if rec.Network.HasUniqueGuids() {
		match, err = check(DupGuidUID,
			`
			---- dup check: guid within scope
			SELECT id FROM item WHERE guid = $1 AND uid = $2 LIMIT 1
			`,
			guid, rec.UID,
		)
		if match != nil || err != nil {
			return match, err
		}
	}

	if !rec.Network.IsFederated() && !rec.Created.IsZero() {
		// Feeds and mail re-deliver the same object under ever-changing uris.
		// Identical body from the same sender at the same creation time is
		// the same item.
		match, err = check(DupBodyHeuristic,
			`
			---- dup check: body heuristic for unreliable networks
			SELECT item.id
			FROM item
				JOIN item_content ON item_content.uri_id = item.uri_id
			WHERE
				item_content.body = $1
				AND item.network = $2
				AND item.created = $3
				AND item.author_id = $4
				AND item.uid = $5
			LIMIT 1
			`,
			rec.Body, rec.Network, rec.Created, authorID, rec.UID,
		)
		if match != nil || err != nil {
			return match, err
		}
	}

	if rec.UID == 0 {
		match, err = check(DupPublicShadow,
			`
			---- dup check: public scope singleton
			SELECT id FROM item WHERE uri_id = $1 AND uid = 0 LIMIT 1
			`,
			uriID,
		)
		if match != nil || err != nil {
			return match, err
		}
	}

	return nil, nil
}

// actorRejectReason checks node-level blocks against the resolved author and
// owner contacts and their origin servers.
func actorRejectReason(
	ctx context.Context,
	conn db.ConnOrTx,
	rec *models.ItemRecord,
	authorID, ownerID int,
) (string, error) {
	blocked, err := db.QueryOneScalar[bool](ctx, conn,
		`
		---- check node-level actor blocks
		SELECT COALESCE(BOOL_OR(blocked), FALSE) FROM contact WHERE id = ANY($1) AND uid = 0
		`,
		[]int{authorID, ownerID},
	)
	if err != nil {
		return "", oops.New(err, "failed to check actor blocks")
	}
	if blocked {
		return RejectBlockedActor, nil
	}

	hosts := []string{}
	for _, link := range []string{rec.AuthorLink, rec.OwnerLink} {
		if h := hostOfLink(link); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) > 0 {
		serverBlocked, err := db.QueryOneScalar[bool](ctx, conn,
			`
			---- check server blocks
			SELECT COUNT(*) > 0 FROM server_block WHERE domain = ANY($1)
			`,
			hosts,
		)
		if err != nil {
			return "", oops.New(err, "failed to check server blocks")
		}
		if serverBlocked {
			return RejectBlockedServer, nil
		}
	}

	return "", nil
}

// followRejectReason guards FOLLOW activities: following yourself is never
// stored, and a second FOLLOW of the same thread by the same author is noise.
func followRejectReason(
	ctx context.Context,
	conn db.ConnOrTx,
	rec *models.ItemRecord,
	authorID int,
	thrParentURIID int,
) (string, error) {
	if rec.Verb != models.VerbFollow {
		return "", nil
	}

	if rec.UID > 0 && !rec.Origin {
		self, err := SelfContact(ctx, conn, rec.UID)
		if err != nil && !errors.Is(err, db.NotFound) {
			return "", oops.New(err, "failed to fetch self contact for follow check")
		}
		if self != nil && NormalizeLink(rec.AuthorLink) == self.Nurl {
			return RejectSelfFollow, nil
		}
	}

	followVerbID, err := db.QueryOneScalar[int](ctx, conn,
		`SELECT id FROM verb WHERE name = $1`,
		models.VerbFollow,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return "", nil
		}
		return "", oops.New(err, "failed to fetch follow verb")
	}

	already, err := db.QueryOneScalar[bool](ctx, conn,
		`
		---- check for repeated follow
		SELECT COUNT(*) > 0
		FROM item
		WHERE
			vid = $1
			AND uid = $2
			AND author_id = $3
			AND thr_parent_uri_id = $4
		`,
		followVerbID, rec.UID, authorID, thrParentURIID,
	)
	if err != nil {
		return "", oops.New(err, "failed to check for repeated follow")
	}
	if already {
		return RejectDuplicateFollow, nil
	}

	return "", nil
}
