package itemdata

import (
	"context"
	"errors"
	"time"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/metrics"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
	"git.thicket.social/thicket/thicket/src/queue"
)

/*
AddShadow ensures the single shared uid=0 copy of a public federated item.
A subscriber-scoped item is cloned with its user-specific fields stripped and
re-enters the pipeline under uid 0; the dedup guard guarantees at-most-one
shadow per uri no matter how many subscribers receive the item.

Comments only grow a shadow when their thread root already has one; a public
index entry for a reply to an invisible thread would be unlinkable.
*/
func (p *Pipeline) AddShadow(ctx context.Context, item *models.Item, content *models.ItemContent) error {
	if item.UID == 0 {
		// Already the canonical copy.
		return nil
	}
	if !item.Network.IsFederated() || !item.Visible || item.Deleted || item.Private == models.PrivacyPrivate {
		return nil
	}

	if !item.IsThreadRoot() {
		rootShadows, err := db.QueryOneScalar[int](ctx, p.Conn,
			`SELECT COUNT(*) FROM item WHERE uri_id = $1 AND uid = 0 AND NOT deleted`,
			item.ParentURIID,
		)
		if err != nil {
			return oops.New(err, "failed to check for root shadow of item %d", item.ID)
		}
		if rootShadows == 0 {
			return nil
		}
	}

	exists, err := db.QueryOneScalar[int](ctx, p.Conn,
		`SELECT COUNT(*) FROM item WHERE uri_id = $1 AND uid = 0`,
		item.URIID,
	)
	if err != nil {
		return oops.New(err, "failed to check for existing shadow of item %d", item.ID)
	}
	if exists > 0 {
		return nil
	}

	rec, err := p.buildRecordFromItem(ctx, item, content)
	if err != nil {
		return err
	}
	rec.UID = 0
	rec.Wall = false
	rec.Origin = false
	rec.ContactID = 0

	res := p.Insert(ctx, rec)
	if res.Status == StatusStored {
		metrics.FanoutCopies.WithLabelValues("shadow").Inc()

		// Every copy of a uri with a public shadow is globally visible,
		// including the subscriber copies that predate it.
		_, err = p.Conn.Exec(ctx,
			`UPDATE item SET global = TRUE WHERE uri_id = $1`,
			item.URIID,
		)
		if err != nil {
			return oops.New(err, "failed to mark copies of uri %d global", item.URIID)
		}
	}
	return nil
}

/*
Distribute fans a canonical public item out to local subscribers: every user
following the item's owner, plus every user who already holds a copy of an
ancestor in the thread. Each copy re-enters the pipeline under the
recipient's uid, so dedup, threading and permission resolution apply to it
exactly as to an original.
*/
func (p *Pipeline) Distribute(ctx context.Context, item *models.Item, content *models.ItemContent) error {
	owner, err := FetchContact(ctx, p.Conn, item.OwnerID)
	if err != nil {
		return err
	}

	followerUIDs, err := db.QueryScalar[int](ctx, p.Conn,
		`
		---- enumerate follower recipients
		SELECT DISTINCT uid
		FROM contact
		WHERE
			uid > 0
			AND nurl = $1
			AND rel = ANY ($2)
			AND NOT blocked
			AND NOT pending
			AND NOT deleted
		`,
		owner.Nurl, []int{int(models.RelSharing), int(models.RelFriend)},
	)
	if err != nil {
		return oops.New(err, "failed to enumerate followers of contact %d", item.OwnerID)
	}

	uids := followerUIDs
	if !item.IsThreadRoot() {
		holderUIDs, err := db.QueryScalar[int](ctx, p.Conn,
			`
			---- enumerate thread holder recipients
			SELECT DISTINCT uid
			FROM item
			WHERE
				uri_id = ANY ($1)
				AND uid > 0
				AND NOT deleted
			`,
			[]int{item.ParentURIID, item.ThrParentURIID},
		)
		if err != nil {
			return oops.New(err, "failed to enumerate thread holders for item %d", item.ID)
		}
		uids = append(uids, holderUIDs...)
	}

	var rec *models.ItemRecord
	for _, uid := range dedupeUIDs(uids) {
		deliver, err := p.canDeliverTo(ctx, uid, item.URIID)
		if err != nil {
			return err
		}
		if !deliver {
			continue
		}

		if rec == nil {
			rec, err = p.buildRecordFromItem(ctx, item, content)
			if err != nil {
				return err
			}
			rec.Wall = false
			rec.Origin = false
			rec.ContactID = 0
		}
		copyRec := *rec
		copyRec.UID = uid
		res := p.Insert(ctx, &copyRec)
		if res.Status == StatusStored {
			metrics.FanoutCopies.WithLabelValues("subscriber").Inc()
		}
	}
	return nil
}

/*
DeliverToTagSubscribers delivers a public thread root to every local user
subscribed to one of its hashtags. Copies are marked with a distinguishing
post type so clients can tell tag deliveries apart, unless the recipient
already follows the author and would have received the item anyway.
*/
func (p *Pipeline) DeliverToTagSubscribers(ctx context.Context, item *models.Item, content *models.ItemContent) error {
	tagIDs, err := fetchHashtagIDs(ctx, p.Conn, item.URIID)
	if err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	uids, err := db.QueryScalar[int](ctx, p.Conn,
		`
		---- enumerate tag subscribers
		SELECT DISTINCT uid
		FROM tag_subscription
		WHERE tag_id = ANY ($1) AND uid > 0
		`,
		tagIDs,
	)
	if err != nil {
		return oops.New(err, "failed to enumerate tag subscribers for item %d", item.ID)
	}
	if len(uids) == 0 {
		return nil
	}

	author, err := FetchContact(ctx, p.Conn, item.AuthorID)
	if err != nil {
		return err
	}

	var rec *models.ItemRecord
	for _, uid := range dedupeUIDs(uids) {
		deliver, err := p.canDeliverTo(ctx, uid, item.URIID)
		if err != nil {
			return err
		}
		if !deliver {
			continue
		}

		if rec == nil {
			rec, err = p.buildRecordFromItem(ctx, item, content)
			if err != nil {
				return err
			}
			rec.Wall = false
			rec.Origin = false
			rec.ContactID = 0
		}
		copyRec := *rec
		copyRec.UID = uid

		edge, err := ContactByNurl(ctx, p.Conn, uid, author.Nurl)
		if err != nil && !errors.Is(err, db.NotFound) {
			return err
		}
		if err != nil || !edge.IsSharing() {
			copyRec.PostType = models.PostTypeTagged
		}

		res := p.Insert(ctx, &copyRec)
		if res.Status == StatusStored {
			metrics.FanoutCopies.WithLabelValues("tag").Inc()
		}
	}
	return nil
}

/*
forumDeliver handles a thread root arriving in a forum account's scope. A
root that mentions the forum is adopted: it becomes a wall post originating
here and is handed to the notifier for rebroadcast to the members. On a
community page, an unmentioned top-level post has no business being there
and the copy is withdrawn.
*/
func (p *Pipeline) forumDeliver(ctx context.Context, item *models.Item, content *models.ItemContent) error {
	if !item.IsThreadRoot() || item.Origin || item.Wall {
		return nil
	}

	user, err := db.QueryOne[models.User](ctx, p.Conn,
		`SELECT $columns FROM site_user WHERE id = $1`,
		item.UID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to fetch user %d for forum delivery", item.UID)
	}
	if !user.IsForum() {
		return nil
	}

	self, err := SelfContact(ctx, p.Conn, item.UID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return err
	}

	mentioned, err := itemMentionsContact(ctx, p.Conn, item.URIID, self)
	if err != nil {
		return err
	}

	if !mentioned {
		if user.Page == models.PageCommunity {
			// Strangers cannot post to the community wall by merely
			// addressing the account's inbox.
			if err := removeForumCopy(ctx, p.Conn, item); err != nil {
				return err
			}
		}
		return nil
	}

	forumMode := 1
	private := item.Private
	psid := item.PermissionSetID
	if user.Page == models.PagePrivateGroup {
		forumMode = 2
		private = models.PrivacyPrivate
		id, err := ResolvePermissionSet(ctx, p.Conn, item.UID, []int{self.ID}, nil, nil, nil)
		if err != nil {
			return err
		}
		psid = &id
	}

	_, err = p.Conn.Exec(ctx,
		`
		---- adopt forum post
		UPDATE item
		SET wall = TRUE, origin = TRUE, forum_mode = $2, private = $3, psid = $4
		WHERE id = $1
		`,
		item.ID, forumMode, private, psid,
	)
	if err != nil {
		return oops.New(err, "failed to adopt forum post %d", item.ID)
	}
	_, err = p.Conn.Exec(ctx,
		`UPDATE thread SET wall = TRUE, origin = TRUE, private = $2 WHERE iid = $1`,
		item.ID, private,
	)
	if err != nil {
		return oops.New(err, "failed to adopt forum thread %d", item.ID)
	}

	item.Wall = true
	item.Origin = true
	item.ForumMode = forumMode
	item.Private = private
	item.PermissionSetID = psid

	logging.ExtractLogger(ctx).Info().
		Int("item", item.ID).
		Int("forum_uid", item.UID).
		Msg("adopted post for forum rebroadcast")
	return queue.Enqueue(ctx, p.Conn, queue.JobNotifyPost, models.PriorityHigh, item.ID)
}

// canDeliverTo filters fan-out recipients: the user must be usable and must
// not already hold a copy of the uri.
func (p *Pipeline) canDeliverTo(ctx context.Context, uid int, uriID int) (bool, error) {
	user, err := db.QueryOne[models.User](ctx, p.Conn,
		`SELECT $columns FROM site_user WHERE id = $1`,
		uid,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return false, nil
		}
		return false, oops.New(err, "failed to fetch fan-out recipient %d", uid)
	}
	if !user.IsUsable(time.Now()) {
		return false, nil
	}

	held, err := db.QueryOneScalar[int](ctx, p.Conn,
		`SELECT COUNT(*) FROM item WHERE uri_id = $1 AND uid = $2`,
		uriID, uid,
	)
	if err != nil {
		return false, oops.New(err, "failed to check held copies for uid %d", uid)
	}
	return held == 0, nil
}

// buildRecordFromItem reconstructs a normalized record from a stored item and
// its content, so fan-out copies can re-enter the pipeline like originals.
// Tag associations are keyed by uri and shared, so they are not carried.
func (p *Pipeline) buildRecordFromItem(ctx context.Context, item *models.Item, content *models.ItemContent) (*models.ItemRecord, error) {
	uri, err := uriByID(ctx, p.Conn, item.URIID)
	if err != nil {
		return nil, err
	}
	thrParent := uri
	if item.ThrParentURIID != item.URIID {
		thrParent, err = uriByID(ctx, p.Conn, item.ThrParentURIID)
		if err != nil {
			return nil, err
		}
	}

	verb, err := db.QueryOneScalar[string](ctx, p.Conn,
		`SELECT name FROM verb WHERE id = $1`,
		item.VerbID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch verb %d", item.VerbID)
	}

	author, err := FetchContact(ctx, p.Conn, item.AuthorID)
	if err != nil {
		return nil, err
	}
	owner := author
	if item.OwnerID != item.AuthorID {
		owner, err = FetchContact(ctx, p.Conn, item.OwnerID)
		if err != nil {
			return nil, err
		}
	}

	gravity := item.Gravity
	private := item.Private
	return &models.ItemRecord{
		URI:       uri,
		Guid:      item.Guid,
		UID:       item.UID,
		Network:   item.Network,
		Verb:      verb,
		ThrParent: thrParent,
		Gravity:   &gravity,

		Title:   content.Title,
		Body:    content.Body,
		RawBody: content.RawBody,
		Plink:   content.Plink,
		ExtID:   item.ExtID,

		AuthorLink:   author.URL,
		AuthorName:   author.Name,
		AuthorAvatar: author.AvatarURL,
		OwnerLink:    owner.URL,
		OwnerName:    owner.Name,
		OwnerAvatar:  owner.AvatarURL,

		Private:  &private,
		Wall:     item.Wall,
		Origin:   item.Origin,
		Pushed:   item.Pushed,
		PostType: item.PostType,

		Created:  item.Created,
		Edited:   item.Edited,
		Received: item.Received,
	}, nil
}

func uriByID(ctx context.Context, conn db.ConnOrTx, id int) (string, error) {
	uri, err := db.QueryOneScalar[string](ctx, conn,
		`SELECT uri FROM item_uri WHERE id = $1`,
		id,
	)
	if err != nil {
		return "", oops.New(err, "failed to fetch uri %d", id)
	}
	return uri, nil
}

// itemMentionsContact reports whether any structured mention on the item
// resolves to the given contact, in any of its known url forms.
func itemMentionsContact(ctx context.Context, conn db.ConnOrTx, uriID int, contact *models.Contact) (bool, error) {
	urls, err := db.QueryScalar[string](ctx, conn,
		`
		---- fetch mention urls
		SELECT tag.url
		FROM item_tag
			JOIN tag ON tag.id = item_tag.tag_id
		WHERE
			item_tag.uri_id = $1
			AND item_tag.type = ANY ($2)
			AND tag.url IS NOT NULL
		`,
		uriID,
		[]int{int(models.TagMention), int(models.TagImplicitMention), int(models.TagExclusiveMention)},
	)
	if err != nil {
		return false, oops.New(err, "failed to fetch mentions for uri %d", uriID)
	}

	selfForms := map[string]bool{}
	for _, form := range []string{contact.URL, contact.Nurl, contact.Alias, contact.Addr} {
		if form != "" {
			selfForms[NormalizeLink(form)] = true
		}
	}
	for _, u := range urls {
		if selfForms[NormalizeLink(u)] {
			return true, nil
		}
	}
	return false, nil
}

// removeForumCopy withdraws a forum account's copy of an item that should
// not have been delivered to it. Only this copy goes away; other holders and
// the shadow are untouched.
func removeForumCopy(ctx context.Context, conn db.ConnOrTx, item *models.Item) error {
	_, err := conn.Exec(ctx,
		`UPDATE item SET deleted = TRUE, changed = $2 WHERE id = $1`,
		item.ID, time.Now(),
	)
	if err != nil {
		return oops.New(err, "failed to withdraw forum copy %d", item.ID)
	}
	_, err = conn.Exec(ctx,
		`DELETE FROM thread WHERE iid = $1`,
		item.ID,
	)
	if err != nil {
		return oops.New(err, "failed to remove thread row for withdrawn copy %d", item.ID)
	}
	logging.ExtractLogger(ctx).Debug().
		Int("item", item.ID).
		Msg("withdrew unsolicited top-level post from community page")
	return nil
}

func dedupeUIDs(uids []int) []int {
	seen := make(map[int]bool, len(uids))
	var out []int
	for _, uid := range uids {
		if uid > 0 && !seen[uid] {
			seen[uid] = true
			out = append(out, uid)
		}
	}
	return out
}
