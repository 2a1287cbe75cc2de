package itemdata

import (
	"testing"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyNotification(t *testing.T) {
	t.Run("never fires for the author", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:           models.GravityComment,
			AuthorIsRecipient: true,
			ExplicitMention:   true,
		})
		assert.Equal(t, models.NotificationType(0), mask)
	})
	t.Run("ignored thread suppresses everything", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:               models.GravityComment,
			ThreadIgnored:         true,
			RootAuthorIsRecipient: true,
		})
		assert.Equal(t, models.NotificationType(0), mask)
	})
	t.Run("bare activities are silent", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:         models.GravityActivity,
			Verb:            models.VerbLike,
			ExplicitMention: true,
		})
		assert.Equal(t, models.NotificationType(0), mask)
	})
	t.Run("announce is the activity exception", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:         models.GravityActivity,
			Verb:            models.VerbAnnounce,
			ExplicitMention: true,
		})
		assert.Equal(t, models.NotifyExplicitTagged, mask)
	})
	t.Run("shared only applies to thread roots", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:    models.GravityParent,
			SharedEdge: true,
		})
		assert.Equal(t, models.NotifyShared, mask)

		mask = classifyNotification(notifyFacts{
			Gravity:    models.GravityComment,
			SharedEdge: true,
		})
		assert.Equal(t, models.NotificationType(0), mask)
	})
	t.Run("mention bits", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:         models.GravityComment,
			ExplicitMention: true,
			ImplicitMention: true,
		})
		assert.Equal(t, models.NotifyExplicitTagged|models.NotifyImplicitTagged, mask)
	})
	t.Run("comment on own thread", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:               models.GravityComment,
			RootAuthorIsRecipient: true,
		})
		assert.Equal(t, models.NotifyThreadComment, mask)
	})
	t.Run("direct reply to own root sets both thread bits", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:               models.GravityComment,
			RootAuthorIsRecipient: true,
			DirectReplyToRoot:     true,
		})
		assert.Equal(t, models.NotifyThreadComment|models.NotifyDirectThreadComment, mask)
	})
	t.Run("reply to own comment", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:                 models.GravityComment,
			ParentAuthorIsRecipient: true,
		})
		assert.Equal(t, models.NotifyDirectComment, mask)
	})
	t.Run("participation bits", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:       models.GravityComment,
			PriorComment:  true,
			PriorActivity: true,
		})
		assert.Equal(t, models.NotifyCommentParticipation|models.NotifyActivityParticipation, mask)
	})
	t.Run("bits combine independently", func(t *testing.T) {
		mask := classifyNotification(notifyFacts{
			Gravity:                 models.GravityComment,
			ExplicitMention:         true,
			RootAuthorIsRecipient:   true,
			ParentAuthorIsRecipient: true,
			DirectReplyToRoot:       true,
			PriorComment:            true,
		})
		expected := models.NotifyExplicitTagged |
			models.NotifyThreadComment |
			models.NotifyDirectThreadComment |
			models.NotifyDirectComment |
			models.NotifyCommentParticipation
		assert.Equal(t, expected, mask)
	})
}
