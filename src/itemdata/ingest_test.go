package itemdata

import (
	"testing"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

func TestThreadBumpedByChild(t *testing.T) {
	bumpAll := config.PolicyConfig{ActivitiesBumpThreads: true}
	bumpConversational := config.PolicyConfig{ActivitiesBumpThreads: false}

	t.Run("everything bumps when policy says so", func(t *testing.T) {
		assert.True(t, threadBumpedByChild(models.VerbPost, bumpAll))
		assert.True(t, threadBumpedByChild(models.VerbFollow, bumpAll))
		assert.True(t, threadBumpedByChild(models.VerbTag, bumpAll))
	})

	t.Run("administrative verbs do not bump otherwise", func(t *testing.T) {
		assert.True(t, threadBumpedByChild(models.VerbPost, bumpConversational))
		assert.True(t, threadBumpedByChild(models.VerbLike, bumpConversational))
		assert.True(t, threadBumpedByChild(models.VerbAnnounce, bumpConversational))
		assert.False(t, threadBumpedByChild(models.VerbFollow, bumpConversational))
		assert.False(t, threadBumpedByChild(models.VerbTag, bumpConversational))
	})
}

func TestInsertResultOK(t *testing.T) {
	assert.True(t, InsertResult{Status: StatusStored, ID: 1}.OK())
	assert.True(t, InsertResult{Status: StatusDuplicate, ID: 1}.OK())
	assert.False(t, InsertResult{Status: StatusRejected, Reason: RejectEmptyContent}.OK())
	assert.False(t, InsertResult{Status: StatusSpooled}.OK())
}
