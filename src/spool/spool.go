package spool

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
)

// The spool is the durable staging area for items that could not be stored
// because of a transient failure. Each file is one normalized item record as
// JSON; an external retry worker replays them through the pipeline later.

const fileSuffix = ".msg"

// Write serializes a record into dir and returns the file path. The name
// embeds the current time so replay order roughly follows arrival order.
func Write(dir string, rec *models.ItemRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", oops.New(err, "failed to create spool directory %s", dir)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", oops.New(err, "failed to serialize item for spooling")
	}

	name := fmt.Sprintf("item-%d-%d%s", time.Now().UnixMicro(), rand.Intn(10000), fileSuffix)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", oops.New(err, "failed to write spool file %s", path)
	}
	return path, nil
}

// List returns the spooled files in dir, oldest first. A missing directory is
// an empty spool, not an error.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oops.New(err, "failed to read spool directory %s", dir)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func Read(path string) (*models.ItemRecord, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.New(err, "failed to read spool file %s", path)
	}

	var rec models.ItemRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, oops.New(err, "spool file %s is not a valid item record", path)
	}
	return &rec, nil
}

func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return oops.New(err, "failed to remove spool file %s", path)
	}
	return nil
}
