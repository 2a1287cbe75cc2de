package itemdata

import (
	"testing"
	"time"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

var guardNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPolicyRejectReason(t *testing.T) {
	goodUser := &models.User{ID: 3, RetentionDays: 0}

	t.Run("accepts a normal record", func(t *testing.T) {
		rec := &models.ItemRecord{Body: "hello", UID: 3, Network: models.NetworkActivityPub}
		assert.Equal(t, "", policyRejectReason(rec, goodUser, guardNow))
	})
	t.Run("rejects empty body and title", func(t *testing.T) {
		rec := &models.ItemRecord{UID: 3}
		assert.Equal(t, RejectEmptyContent, policyRejectReason(rec, goodUser, guardNow))
	})
	t.Run("title alone is enough", func(t *testing.T) {
		rec := &models.ItemRecord{Title: "subject", UID: 3}
		assert.Equal(t, "", policyRejectReason(rec, goodUser, guardNow))
	})
	t.Run("rejects removed accounts", func(t *testing.T) {
		rec := &models.ItemRecord{Body: "hello", UID: 3}
		removed := &models.User{ID: 3, AccountRemoved: true}
		assert.Equal(t, RejectAccountUnusable, policyRejectReason(rec, removed, guardNow))
	})
	t.Run("rejects accounts past their expiry date", func(t *testing.T) {
		rec := &models.ItemRecord{Body: "hello", UID: 3}
		expiry := guardNow.AddDate(0, -1, 0)
		expired := &models.User{ID: 3, AccountExpires: &expiry}
		assert.Equal(t, RejectAccountUnusable, policyRejectReason(rec, expired, guardNow))
	})
	t.Run("public scope has no user to check", func(t *testing.T) {
		rec := &models.ItemRecord{Body: "hello", UID: 0}
		assert.Equal(t, "", policyRejectReason(rec, nil, guardNow))
	})
}

func TestRecordTooStale(t *testing.T) {
	old := guardNow.AddDate(0, 0, -30)

	t.Run("pushed and old", func(t *testing.T) {
		rec := &models.ItemRecord{Created: old, Pushed: true}
		assert.True(t, recordTooStale(rec, 7, guardNow))
	})
	t.Run("within the window", func(t *testing.T) {
		rec := &models.ItemRecord{Created: guardNow.AddDate(0, 0, -3), Pushed: true}
		assert.False(t, recordTooStale(rec, 7, guardNow))
	})
	t.Run("retention disabled", func(t *testing.T) {
		rec := &models.ItemRecord{Created: old, Pushed: true}
		assert.False(t, recordTooStale(rec, 0, guardNow))
	})
	t.Run("pulled items are exempt", func(t *testing.T) {
		rec := &models.ItemRecord{Created: old, Pushed: false}
		assert.False(t, recordTooStale(rec, 7, guardNow))
	})
	t.Run("own posts are exempt", func(t *testing.T) {
		rec := &models.ItemRecord{Created: old, Pushed: true, Origin: true}
		assert.False(t, recordTooStale(rec, 7, guardNow))
	})
	t.Run("unknown creation time is not stale", func(t *testing.T) {
		rec := &models.ItemRecord{Pushed: true}
		assert.False(t, recordTooStale(rec, 7, guardNow))
	})
}
