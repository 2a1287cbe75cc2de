package itemdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/spool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySpool(t *testing.T) {
	t.Run("a record that spools again does not multiply", func(t *testing.T) {
		cfg := config.Config
		cfg.Spool.Dir = t.TempDir()
		p := NewPipeline(brokenConn{}, &cfg, nil)

		_, err := spool.Write(cfg.Spool.Dir, &models.ItemRecord{
			URI:     "https://social.example/users/carol/status/1",
			Network: models.NetworkActivityPub,
			Body:    "hello",
		})
		require.NoError(t, err)

		// Storage is down, so the replayed record spools right back. The
		// re-spooled file must replace the original, not pile up next to it.
		cleared, err := p.ReplaySpool(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, cleared)

		remaining, err := spool.List(cfg.Spool.Dir)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)

		// Further sweeps keep the spool at one file per record.
		_, err = p.ReplaySpool(context.Background())
		require.NoError(t, err)
		remaining, err = spool.List(cfg.Spool.Dir)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})

	t.Run("unreadable files are dropped", func(t *testing.T) {
		cfg := config.Config
		cfg.Spool.Dir = t.TempDir()
		p := NewPipeline(brokenConn{}, &cfg, nil)

		require.NoError(t, writeGarbageSpoolFile(cfg.Spool.Dir))

		_, err := p.ReplaySpool(context.Background())
		require.NoError(t, err)

		remaining, err := spool.List(cfg.Spool.Dir)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})
}

func writeGarbageSpoolFile(dir string) error {
	return os.WriteFile(filepath.Join(dir, "item-0-0.msg"), []byte("{not json"), 0o644)
}
