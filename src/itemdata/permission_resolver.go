package itemdata

import (
	"context"
	"errors"
	"sort"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/oops"
)

// CanonicalizeACL sorts an id list and drops duplicates, so that every
// spelling of the same ACL maps to one permission set row. Empty input
// canonicalizes to an empty (non-nil) slice to keep array comparisons in SQL
// well-defined.
func CanonicalizeACL(ids []int) []int {
	result := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	sort.Ints(result)
	return result
}

// ResolvePermissionSet canonicalizes an allow/deny tuple and returns the
// handle of the matching permission set, creating it on first sight. Handles
// are immutable; a changed ACL yields a fresh handle. Concurrent creation of
// the same tuple is resolved by re-querying after the failed insert.
func ResolvePermissionSet(
	ctx context.Context,
	conn db.ConnOrTx,
	uid int,
	allowCID, allowGID, denyCID, denyGID []int,
) (int, error) {
	allowCID = CanonicalizeACL(allowCID)
	allowGID = CanonicalizeACL(allowGID)
	denyCID = CanonicalizeACL(denyCID)
	denyGID = CanonicalizeACL(denyGID)

	lookup := func() (int, error) {
		return db.QueryOneScalar[int](ctx, conn,
			`
			---- look up permission set
			SELECT id
			FROM permission_set
			WHERE
				uid = $1
				AND allow_cid = $2
				AND allow_gid = $3
				AND deny_cid = $4
				AND deny_gid = $5
			`,
			uid, allowCID, allowGID, denyCID, denyGID,
		)
	}

	id, err := lookup()
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to look up permission set for user %d", uid)
	}

	id, err = db.QueryOneScalar[int](ctx, conn,
		`
		---- create permission set
		INSERT INTO permission_set (uid, allow_cid, allow_gid, deny_cid, deny_gid)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uid, allow_cid, allow_gid, deny_cid, deny_gid) DO NOTHING
		RETURNING id
		`,
		uid, allowCID, allowGID, denyCID, denyGID,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to create permission set for user %d", uid)
	}

	// Lost the creation race; the winner's handle is there now.
	id, err = lookup()
	if err != nil {
		return 0, oops.New(err, "failed to re-fetch permission set after insert race")
	}
	return id, nil
}
