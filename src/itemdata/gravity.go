package itemdata

import (
	"context"
	"errors"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// Replies normally point straight at the thread root, but federation hands us
// fragments in any order, so the immediate reply target may itself be a
// reply. We walk up a fixed number of levels rather than recursing; a chain
// that does not reach a root within the limit is malformed or malicious.
const maxParentWalk = 2

// DecideGravity classifies a record's structural role. Evaluated in order:
// an explicit gravity wins; a record that replies to itself (or to nothing)
// is a root; a plain post is a comment; a reaction verb is an activity.
// Anything else is unknown, which the caller logs but does not refuse.
func DecideGravity(rec *models.ItemRecord) models.Gravity {
	if rec.Gravity != nil {
		return *rec.Gravity
	}
	if rec.ThrParent == "" || rec.ThrParent == rec.URI {
		return models.GravityParent
	}
	if rec.Verb == "" || rec.Verb == models.VerbPost {
		return models.GravityComment
	}
	if models.VerbIsActivity(rec.Verb) {
		return models.GravityActivity
	}
	return models.GravityUnknown
}

type threadRoot struct {
	Item models.Item `db:"item"`
	URI  string      `db:"item_uri.uri"`
}

// resolveThreadRoot finds the top-level root for a reply, scoped to the same
// uid. Starting from the immediate reply target, it walks upward a bounded
// number of steps until it reaches an item that is its own parent. NotFound
// means the thread cannot be observed from this scope and the reply must be
// rejected.
func resolveThreadRoot(ctx context.Context, conn db.ConnOrTx, uid int, thrParentURI string) (*threadRoot, error) {
	fetch := func(uri string) (*threadRoot, error) {
		return db.QueryOne[threadRoot](ctx, conn,
			`
			---- resolve thread parent
			SELECT $columns
			FROM item
				JOIN item_uri ON item_uri.id = item.uri_id
			WHERE
				item_uri.uri = $2
				AND item.uid = $1
				AND NOT item.deleted
			ORDER BY item.id
			LIMIT 1
			`,
			uid, uri,
		)
	}

	cur, err := fetch(thrParentURI)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to resolve reply target %s", thrParentURI)
	}

	for walked := 0; cur.Item.URIID != cur.Item.ParentURIID && walked < maxParentWalk; walked++ {
		parentURI, err := db.QueryOneScalar[string](ctx, conn,
			`SELECT uri FROM item_uri WHERE id = $1`,
			cur.Item.ParentURIID,
		)
		if err != nil {
			return nil, oops.New(err, "failed to fetch parent uri %d", cur.Item.ParentURIID)
		}

		cur, err = fetch(parentURI)
		if err != nil {
			if errors.Is(err, db.NotFound) {
				return nil, db.NotFound
			}
			return nil, oops.New(err, "failed to walk up to thread root %s", parentURI)
		}
	}

	if cur.Item.URIID != cur.Item.ParentURIID || cur.Item.Gravity != models.GravityParent {
		logging.ExtractLogger(ctx).Warn().
			Str("thr_parent", thrParentURI).
			Int("uid", uid).
			Msg("reply chain did not reach a thread root within the walk limit")
		return nil, db.NotFound
	}
	return cur, nil
}

// rootFacts is the inheritance-relevant view of a resolved root, kept free of
// database types so inheritance can be tested directly.
type rootFacts struct {
	Private models.Privacy
	Wall    bool
	PSID    *int
	// The root belongs to a forum account that rebroadcasts it.
	ForumBroadcast bool
	// The root was authored or owned by the scope user themselves.
	SelfInvolved bool
}

// inheritedVisibility is what a reply or activity takes over from its root.
type inheritedVisibility struct {
	Private models.Privacy
	Wall    bool
	PSID    *int
}

// inheritVisibility computes the child's visibility from its root. The
// child's own ACL is discarded; a thread has exactly one audience, the
// root's. Wall status carries over except for FOLLOW activities, which are
// participation bookkeeping rather than posts. When the root is in
// forum-broadcast mode and not fully private, the child is forced public;
// this repairs a legacy mismatch between forum posts and their comments and
// can be switched off by policy.
func inheritVisibility(verb string, root rootFacts, policy config.PolicyConfig) inheritedVisibility {
	inherited := inheritedVisibility{
		Private: root.Private,
		Wall:    root.Wall && verb != models.VerbFollow,
		PSID:    root.PSID,
	}

	if policy.ForumCommentVisibilityFix && root.ForumBroadcast && root.Private != models.PrivacyPrivate {
		inherited.Private = models.PrivacyPublic
		inherited.PSID = nil
	}

	return inherited
}

func (root *threadRoot) facts(selfInvolved bool) rootFacts {
	return rootFacts{
		Private:        root.Item.Private,
		Wall:           root.Item.Wall,
		PSID:           root.Item.PermissionSetID,
		ForumBroadcast: root.Item.ForumMode > 0,
		SelfInvolved:   selfInvolved,
	}
}

// rootInvolvesUser reports whether the root's author or owner is the scope
// user's own identity, which marks the thread for mention-style attention.
func rootInvolvesUser(ctx context.Context, conn db.ConnOrTx, uid int, root *threadRoot) (bool, error) {
	if uid == 0 {
		return false, nil
	}
	involved, err := db.QueryOneScalar[bool](ctx, conn,
		`
		---- check whether the thread root involves the user
		SELECT COUNT(*) > 0
		FROM contact AS self
			JOIN contact AS actor ON actor.nurl = self.nurl
		WHERE
			self.uid = $1
			AND self.self
			AND actor.id = ANY($2)
		`,
		uid, []int{root.Item.AuthorID, root.Item.OwnerID},
	)
	if err != nil {
		return false, oops.New(err, "failed to check root involvement for user %d", uid)
	}
	return involved, nil
}
