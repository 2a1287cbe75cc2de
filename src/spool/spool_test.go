package spool

import (
	"testing"
	"time"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolRoundTrip(t *testing.T) {
	dir := t.TempDir()

	private := models.PrivacyPrivate
	rec := &models.ItemRecord{
		URI:       "https://remote.example/item/1",
		Guid:      "abc123",
		UID:       7,
		Network:   models.NetworkActivityPub,
		Verb:      models.VerbPost,
		ThrParent: "https://remote.example/item/1",
		Title:     "hello",
		Body:      "a body with\nnewlines and \"quotes\"",
		Private:   &private,
		AllowCID:  []int{3, 1, 2},
		Created:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		Mentions: []models.TagRecord{
			{Name: "someone", URL: "https://remote.example/someone", Type: models.TagMention},
		},
	}

	path, err := Write(dir, rec)
	require.Nil(t, err)

	files, err := List(dir)
	require.Nil(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0])

	got, err := Read(path)
	require.Nil(t, err)
	assert.Equal(t, rec, got)

	require.Nil(t, Remove(path))
	files, err = List(dir)
	require.Nil(t, err)
	assert.Len(t, files, 0)
}

func TestListOrderAndFiltering(t *testing.T) {
	dir := t.TempDir()

	first, err := Write(dir, &models.ItemRecord{URI: "u1", Network: models.NetworkFeed})
	require.Nil(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := Write(dir, &models.ItemRecord{URI: "u2", Network: models.NetworkFeed})
	require.Nil(t, err)

	files, err := List(dir)
	require.Nil(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, first, files[0], "oldest file should come first")
	assert.Equal(t, second, files[1])
}

func TestListMissingDir(t *testing.T) {
	files, err := List("/nonexistent/spool/dir")
	assert.Nil(t, err)
	assert.Len(t, files, 0)
}
