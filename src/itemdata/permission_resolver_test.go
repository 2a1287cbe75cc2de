package itemdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeACL(t *testing.T) {
	t.Run("sorts", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 3}, CanonicalizeACL([]int{3, 1, 2}))
	})
	t.Run("dedupes", func(t *testing.T) {
		assert.Equal(t, []int{1, 2}, CanonicalizeACL([]int{2, 1, 2, 1, 1}))
	})
	t.Run("empty input stays empty, not nil", func(t *testing.T) {
		result := CanonicalizeACL(nil)
		assert.NotNil(t, result)
		assert.Len(t, result, 0)
	})
	t.Run("different spellings converge", func(t *testing.T) {
		assert.Equal(t, CanonicalizeACL([]int{5, 9, 5}), CanonicalizeACL([]int{9, 5, 9}))
	})
}
