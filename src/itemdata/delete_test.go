package itemdata

import (
	"context"
	"testing"
	"time"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteCascades(t *testing.T) {
	now := time.Now()
	root := models.Item{
		ID:             10,
		UID:            5,
		URIID:          100,
		ParentID:       10,
		ParentURIID:    100,
		ThrParentURIID: 100,
		Gravity:        models.GravityParent,
		Network:        models.NetworkActivityPub,
		Visible:        true,
		Origin:         true,
		Created:        now,
		Edited:         now,
		Received:       now,
		Commented:      now,
		Changed:        now,
	}
	child := root
	child.ID = 11
	child.URIID = 101
	child.Gravity = models.GravityComment
	child.Origin = false

	conn := &fakeConn{}
	conn.stub("fetch item for deletion",
		[][]any{rowFromStruct(root)},
		[][]any{rowFromStruct(child)},
	)
	conn.stub("enumerate children for cascade", [][]any{{11}})
	conn.stub("uid > 0 AND NOT deleted", [][]any{{0}})     // no holders survive
	conn.stub("uid = 0 AND NOT deleted", [][]any{})        // no shadow to chase
	conn.stub("uri_id = $1 AND NOT deleted", [][]any{{0}}) // no live refs either

	p := NewPipeline(conn, &config.Config, nil)
	require.NoError(t, p.Delete(context.Background(), 10))

	t.Run("children go before the root", func(t *testing.T) {
		marks := conn.execsMatching("mark item deleted")
		require.Len(t, marks, 2)
		assert.Equal(t, 11, marks[0].args[0])
		assert.Equal(t, 10, marks[1].args[0])
	})

	t.Run("the thread summary row is removed", func(t *testing.T) {
		deletes := conn.execsMatching("DELETE FROM thread")
		require.Len(t, deletes, 1)
		assert.Equal(t, 10, deletes[0].args[0])
	})

	t.Run("unreferenced shared data is reclaimed", func(t *testing.T) {
		contentDeletes := conn.execsMatching("DELETE FROM item_content")
		require.Len(t, contentDeletes, 2)
		assert.Equal(t, 101, contentDeletes[0].args[0])
		assert.Equal(t, 100, contentDeletes[1].args[0])

		tagDeletes := conn.execsMatching("DELETE FROM item_tag")
		require.Len(t, tagDeletes, 2)
	})

	t.Run("only the origin root announces its deletion", func(t *testing.T) {
		enqueues := conn.execsMatching("INSERT INTO worker_job")
		require.Len(t, enqueues, 1)
		assert.Equal(t, queue.JobNotifyDelete, enqueues[0].args[0])
		assert.Equal(t, 10, enqueues[0].args[2])
	})
}

func TestDeleteForUserHidesForeignCopies(t *testing.T) {
	shadow := models.Item{
		ID:             20,
		UID:            0,
		URIID:          200,
		ParentID:       20,
		ParentURIID:    200,
		ThrParentURIID: 200,
		Gravity:        models.GravityParent,
		Network:        models.NetworkActivityPub,
		Visible:        true,
	}

	conn := &fakeConn{}
	conn.stub("FROM item WHERE id = $1", [][]any{rowFromStruct(shadow)})

	p := NewPipeline(conn, &config.Config, nil)
	require.NoError(t, p.DeleteForUser(context.Background(), 20, 5))

	// The shared copy survives; the user only gets a hidden overlay.
	assert.Empty(t, conn.execsMatching("mark item deleted"))
	hides := conn.execsMatching("hide item for user")
	require.Len(t, hides, 1)
	assert.Equal(t, 200, hides[0].args[0])
	assert.Equal(t, 5, hides[0].args[1])
}
