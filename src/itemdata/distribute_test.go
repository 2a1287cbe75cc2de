package itemdata

import (
	"context"
	"testing"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shadowCandidate() *models.Item {
	return &models.Item{
		ID:             10,
		UID:            5,
		URIID:          100,
		ParentID:       10,
		ParentURIID:    100,
		ThrParentURIID: 100,
		Gravity:        models.GravityParent,
		Network:        models.NetworkActivityPub,
		Private:        models.PrivacyPublic,
		Visible:        true,
	}
}

func TestAddShadow(t *testing.T) {
	content := &models.ItemContent{Body: "hello"}

	t.Run("never touches storage when no shadow could exist", func(t *testing.T) {
		for name, mutate := range map[string]func(i *models.Item){
			"already the shared copy": func(i *models.Item) { i.UID = 0 },
			"not federated":           func(i *models.Item) { i.Network = models.NetworkMail },
			"invisible":               func(i *models.Item) { i.Visible = false },
			"deleted":                 func(i *models.Item) { i.Deleted = true },
			"private":                 func(i *models.Item) { i.Private = models.PrivacyPrivate },
		} {
			t.Run(name, func(t *testing.T) {
				conn := &fakeConn{}
				p := NewPipeline(conn, &config.Config, nil)

				item := shadowCandidate()
				mutate(item)
				require.NoError(t, p.AddShadow(context.Background(), item, content))
				assert.Empty(t, conn.queryLog)
				assert.Empty(t, conn.execLog)
			})
		}
	})

	t.Run("a comment waits for its root's shadow", func(t *testing.T) {
		conn := &fakeConn{}
		conn.stub("uid = 0 AND NOT deleted", [][]any{{0}})
		p := NewPipeline(conn, &config.Config, nil)

		item := shadowCandidate()
		item.ID = 11
		item.URIID = 101
		item.Gravity = models.GravityComment

		require.NoError(t, p.AddShadow(context.Background(), item, content))

		// Only the root-shadow check ran; no clone entered the pipeline.
		assert.Len(t, conn.queryLog, 1)
		assert.Empty(t, conn.execLog)
	})

	t.Run("an existing shadow is left alone", func(t *testing.T) {
		conn := &fakeConn{}
		conn.stub("uri_id = $1 AND uid = 0", [][]any{{1}})
		p := NewPipeline(conn, &config.Config, nil)

		require.NoError(t, p.AddShadow(context.Background(), shadowCandidate(), content))

		assert.Len(t, conn.queryLog, 1)
		assert.Empty(t, conn.execLog)
	})
}
