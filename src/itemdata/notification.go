package itemdata

import (
	"context"
	"errors"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/metrics"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// notifyFacts is everything the classifier needs to know about one item from
// one recipient's point of view, prefetched so classification itself is pure.
type notifyFacts struct {
	Gravity models.Gravity
	Verb    string

	AuthorIsRecipient bool
	ThreadIgnored     bool

	// The delivering contact edge (or a mentioned forum edge) is flagged for
	// notify-on-new-post.
	SharedEdge bool

	ExplicitMention bool
	ImplicitMention bool

	RootAuthorIsRecipient   bool
	ParentAuthorIsRecipient bool
	DirectReplyToRoot       bool

	PriorComment  bool
	PriorActivity bool
}

// classifyNotification computes the per-recipient reason bitmask. It never
// fires for the item's own author, an ignored thread suppresses everything,
// and bare activities are not notification-worthy except for announces.
func classifyNotification(f notifyFacts) models.NotificationType {
	if f.AuthorIsRecipient || f.ThreadIgnored {
		return 0
	}
	if f.Gravity != models.GravityParent && f.Gravity != models.GravityComment {
		if f.Verb != models.VerbAnnounce {
			return 0
		}
	}

	var mask models.NotificationType

	if f.SharedEdge && f.Gravity == models.GravityParent {
		mask |= models.NotifyShared
	}
	if f.ExplicitMention {
		mask |= models.NotifyExplicitTagged
	}
	if f.ImplicitMention {
		mask |= models.NotifyImplicitTagged
	}

	if f.Gravity == models.GravityComment {
		if f.RootAuthorIsRecipient {
			mask |= models.NotifyThreadComment
			if f.DirectReplyToRoot {
				mask |= models.NotifyDirectThreadComment
			}
		}
		if f.ParentAuthorIsRecipient {
			mask |= models.NotifyDirectComment
		}
		if f.PriorComment {
			mask |= models.NotifyCommentParticipation
		}
		if f.PriorActivity {
			mask |= models.NotifyActivityParticipation
		}
	}

	return mask
}

// storeNotification prefetches the recipient's view of the thread, runs the
// classifier, and records a non-zero mask on the user_item row. item must be
// the recipient's own copy (item.UID > 0).
func storeNotification(ctx context.Context, conn db.ConnOrTx, item *models.Item, verb string) error {
	if item.UID == 0 {
		return nil
	}

	self, err := SelfContact(ctx, conn, item.UID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to fetch self contact for notification")
	}

	facts := notifyFacts{
		Gravity:           item.Gravity,
		Verb:              verb,
		DirectReplyToRoot: item.ThrParentURIID == item.ParentURIID,
	}

	facts.AuthorIsRecipient, err = contactMatchesSelf(ctx, conn, item.AuthorID, self)
	if err != nil {
		return err
	}

	facts.ThreadIgnored, err = db.QueryOneScalar[bool](ctx, conn,
		`
		---- check thread ignored
		SELECT COUNT(*) > 0
		FROM thread
		WHERE iid = $1 AND uid = $2 AND ignored
		`,
		item.ParentID, item.UID,
	)
	if err != nil {
		return oops.New(err, "failed to check ignored state")
	}

	edge, err := FetchContact(ctx, conn, item.ContactID)
	if err == nil {
		facts.SharedEdge = edge.NotifyNewPosts
	} else if !errors.Is(err, db.NotFound) {
		return oops.New(err, "failed to fetch delivery edge for notification")
	}

	facts.ExplicitMention, facts.ImplicitMention, err = mentionsOfSelf(ctx, conn, item.URIID, self)
	if err != nil {
		return err
	}

	type authorRow struct {
		AuthorID int `db:"author_id"`
		URIID    int `db:"uri_id"`
	}
	root, err := db.QueryOne[authorRow](ctx, conn,
		`
		---- fetch root author
		SELECT $columns FROM item WHERE id = $1
		`,
		item.ParentID,
	)
	if err == nil {
		facts.RootAuthorIsRecipient, err = contactMatchesSelf(ctx, conn, root.AuthorID, self)
		if err != nil {
			return err
		}
	} else if !errors.Is(err, db.NotFound) {
		return oops.New(err, "failed to fetch root for notification")
	}

	parent, err := db.QueryOne[authorRow](ctx, conn,
		`
		---- fetch immediate parent author
		SELECT $columns FROM item WHERE uri_id = $1 AND uid = $2 LIMIT 1
		`,
		item.ThrParentURIID, item.UID,
	)
	if err == nil {
		facts.ParentAuthorIsRecipient, err = contactMatchesSelf(ctx, conn, parent.AuthorID, self)
		if err != nil {
			return err
		}
	} else if !errors.Is(err, db.NotFound) {
		return oops.New(err, "failed to fetch parent for notification")
	}

	facts.PriorComment, facts.PriorActivity, err = priorParticipation(ctx, conn, item, self)
	if err != nil {
		return err
	}

	mask := classifyNotification(facts)
	if mask == 0 {
		return nil
	}

	_, err = conn.Exec(ctx,
		`
		---- record notification mask
		INSERT INTO user_item (uri_id, uid, notification_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (uri_id, uid) DO UPDATE SET
			notification_type = user_item.notification_type | EXCLUDED.notification_type
		`,
		item.URIID, item.UID, mask,
	)
	if err != nil {
		return oops.New(err, "failed to record notification for user %d", item.UID)
	}

	metrics.NotificationsClassified.Inc()
	return nil
}

func contactMatchesSelf(ctx context.Context, conn db.ConnOrTx, contactID int, self *models.Contact) (bool, error) {
	if contactID == 0 {
		return false, nil
	}
	if contactID == self.ID {
		return true, nil
	}
	match, err := db.QueryOneScalar[bool](ctx, conn,
		`
		---- compare contact identity with self
		SELECT COUNT(*) > 0 FROM contact WHERE id = $1 AND nurl = $2
		`,
		contactID, self.Nurl,
	)
	if err != nil {
		return false, oops.New(err, "failed to compare contact %d against self", contactID)
	}
	return match, nil
}

// mentionsOfSelf checks the item's structured mention tags against the known
// equivalent forms of the recipient's own profile url.
func mentionsOfSelf(ctx context.Context, conn db.ConnOrTx, uriID int, self *models.Contact) (explicit bool, implicit bool, err error) {
	type mentionRow struct {
		URL  *string        `db:"tag.url"`
		Type models.TagType `db:"item_tag.type"`
	}
	mentions, err := db.Query[mentionRow](ctx, conn,
		`
		---- fetch mention tags
		SELECT $columns
		FROM item_tag
			JOIN tag ON tag.id = item_tag.tag_id
		WHERE item_tag.uri_id = $1 AND item_tag.type = ANY($2)
		`,
		uriID, []models.TagType{models.TagMention, models.TagImplicitMention, models.TagExclusiveMention},
	)
	if err != nil {
		return false, false, oops.New(err, "failed to fetch mentions for uri %d", uriID)
	}

	selfForms := map[string]bool{}
	for _, form := range []string{self.URL, self.Nurl, self.Alias, self.Addr} {
		if form != "" {
			selfForms[NormalizeLink(form)] = true
		}
	}

	for _, mention := range mentions {
		if mention.URL == nil || !selfForms[NormalizeLink(*mention.URL)] {
			continue
		}
		if mention.Type == models.TagImplicitMention {
			implicit = true
		} else {
			explicit = true
		}
	}
	return explicit, implicit, nil
}

func priorParticipation(ctx context.Context, conn db.ConnOrTx, item *models.Item, self *models.Contact) (comment bool, activity bool, err error) {
	gravities, err := db.QueryScalar[models.Gravity](ctx, conn,
		`
		---- fetch recipient's prior participation in the thread
		SELECT DISTINCT item.gravity
		FROM item
			JOIN contact AS author ON author.id = item.author_id
		WHERE
			item.parent = $1
			AND item.uid = $2
			AND item.id != $3
			AND author.nurl = $4
		`,
		item.ParentID, item.UID, item.ID, self.Nurl,
	)
	if err != nil {
		return false, false, oops.New(err, "failed to fetch prior thread participation")
	}
	for _, g := range gravities {
		switch g {
		case models.GravityComment:
			comment = true
		case models.GravityActivity:
			activity = true
		}
	}
	return comment, activity, nil
}
