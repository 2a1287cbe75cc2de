package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 5, OrDefault(0, 5))
	assert.Equal(t, 3, OrDefault(3, 5))
	assert.Equal(t, "fallback", OrDefault("", "fallback"))
	assert.Equal(t, "value", OrDefault("value", "fallback"))
}

func TestMust(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		f := func() error { return nil }
		Must(f())
	})
	t.Run("non-nil error", func(t *testing.T) {
		f := func() error { return errors.New("nope") }
		assert.Panics(t, func() {
			Must(f())
		})
	})
}

func TestMust1(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		f := func() (int, error) { return 4, nil }
		assert.Equal(t, 4, Must1(f()))
	})
	t.Run("non-nil error", func(t *testing.T) {
		f := func() (int, error) { return 0, errors.New("nope") }
		assert.Panics(t, func() {
			Must1(f())
		})
	})
}

func TestNotAfter(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.Equal(t, past, NotAfter(past, now))
	assert.Equal(t, now, NotAfter(future, now))
	assert.Equal(t, now, NotAfter(now, now))
}

func TestRecoverPanicAsError(t *testing.T) {
	f := func() (err error) {
		defer RecoverPanicAsError(&err)
		panic(errors.New("oh no"))
	}
	err := f()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "oh no")
}
