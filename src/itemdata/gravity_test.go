package itemdata

import (
	"testing"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

func TestDecideGravity(t *testing.T) {
	t.Run("explicit gravity wins", func(t *testing.T) {
		g := models.GravityActivity
		rec := &models.ItemRecord{
			URI:       "https://a.example/1",
			ThrParent: "https://a.example/1",
			Gravity:   &g,
		}
		assert.Equal(t, models.GravityActivity, DecideGravity(rec))
	})
	t.Run("self-referential reply target means root", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:       "https://a.example/1",
			ThrParent: "https://a.example/1",
		}
		assert.Equal(t, models.GravityParent, DecideGravity(rec))
	})
	t.Run("no reply target means root", func(t *testing.T) {
		rec := &models.ItemRecord{URI: "https://a.example/1"}
		assert.Equal(t, models.GravityParent, DecideGravity(rec))
	})
	t.Run("plain post reply is a comment", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:       "https://a.example/2",
			ThrParent: "https://a.example/1",
			Verb:      models.VerbPost,
		}
		assert.Equal(t, models.GravityComment, DecideGravity(rec))
	})
	t.Run("verbless reply is a comment", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:       "https://a.example/2",
			ThrParent: "https://a.example/1",
		}
		assert.Equal(t, models.GravityComment, DecideGravity(rec))
	})
	t.Run("follow is an activity", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:       "https://a.example/2",
			ThrParent: "https://a.example/1",
			Verb:      models.VerbFollow,
		}
		assert.Equal(t, models.GravityActivity, DecideGravity(rec))
	})
	t.Run("announce is an activity", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:       "https://a.example/2",
			ThrParent: "https://a.example/1",
			Verb:      models.VerbAnnounce,
		}
		assert.Equal(t, models.GravityActivity, DecideGravity(rec))
	})
	t.Run("unrecognized verb is unknown, not coerced", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:       "https://a.example/2",
			ThrParent: "https://a.example/1",
			Verb:      "frobnicate",
		}
		assert.Equal(t, models.GravityUnknown, DecideGravity(rec))
	})
}

func TestInheritVisibility(t *testing.T) {
	defaultPolicy := config.PolicyConfig{ForumCommentVisibilityFix: true}
	psid := 44

	t.Run("private root makes a private child", func(t *testing.T) {
		root := rootFacts{Private: models.PrivacyPrivate, PSID: &psid}
		inherited := inheritVisibility(models.VerbPost, root, defaultPolicy)
		assert.Equal(t, models.PrivacyPrivate, inherited.Private)
		assert.Equal(t, &psid, inherited.PSID)
	})
	t.Run("unlisted root carries over", func(t *testing.T) {
		root := rootFacts{Private: models.PrivacyUnlisted}
		inherited := inheritVisibility(models.VerbPost, root, defaultPolicy)
		assert.Equal(t, models.PrivacyUnlisted, inherited.Private)
	})
	t.Run("wall status carries over", func(t *testing.T) {
		root := rootFacts{Wall: true}
		inherited := inheritVisibility(models.VerbPost, root, defaultPolicy)
		assert.True(t, inherited.Wall)
	})
	t.Run("follows are never wall posts", func(t *testing.T) {
		root := rootFacts{Wall: true}
		inherited := inheritVisibility(models.VerbFollow, root, defaultPolicy)
		assert.False(t, inherited.Wall)
	})
	t.Run("forum broadcast forces the child public", func(t *testing.T) {
		root := rootFacts{
			Private:        models.PrivacyUnlisted,
			PSID:           &psid,
			ForumBroadcast: true,
		}
		inherited := inheritVisibility(models.VerbPost, root, defaultPolicy)
		assert.Equal(t, models.PrivacyPublic, inherited.Private)
		assert.Nil(t, inherited.PSID)
	})
	t.Run("forum broadcast does not touch fully private threads", func(t *testing.T) {
		root := rootFacts{
			Private:        models.PrivacyPrivate,
			PSID:           &psid,
			ForumBroadcast: true,
		}
		inherited := inheritVisibility(models.VerbPost, root, defaultPolicy)
		assert.Equal(t, models.PrivacyPrivate, inherited.Private)
		assert.Equal(t, &psid, inherited.PSID)
	})
	t.Run("forum override can be disabled by policy", func(t *testing.T) {
		root := rootFacts{
			Private:        models.PrivacyUnlisted,
			PSID:           &psid,
			ForumBroadcast: true,
		}
		inherited := inheritVisibility(models.VerbPost, root, config.PolicyConfig{})
		assert.Equal(t, models.PrivacyUnlisted, inherited.Private)
		assert.Equal(t, &psid, inherited.PSID)
	})
}
