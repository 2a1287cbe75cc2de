package itemdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLink(t *testing.T) {
	t.Run("collapses scheme and case", func(t *testing.T) {
		assert.Equal(t, "http://social.example/users/carol", NormalizeLink("https://Social.Example/users/carol"))
	})
	t.Run("strips trailing slashes", func(t *testing.T) {
		assert.Equal(t, "http://social.example/users/carol", NormalizeLink("http://social.example/users/carol/"))
	})
	t.Run("equivalent forms converge", func(t *testing.T) {
		forms := []string{
			"https://social.example/users/carol",
			"http://social.example/users/carol",
			"HTTPS://SOCIAL.EXAMPLE/USERS/CAROL/",
		}
		for _, form := range forms {
			assert.Equal(t, NormalizeLink(forms[0]), NormalizeLink(form))
		}
	})
}

func TestHostOfLink(t *testing.T) {
	assert.Equal(t, "social.example", hostOfLink("https://social.example/users/carol"))
	assert.Equal(t, "", hostOfLink("not a url at all \x7f"))
}

func TestDedupeUIDs(t *testing.T) {
	assert.Equal(t, []int{3, 1, 7}, dedupeUIDs([]int{3, 1, 3, 0, 7, 1}))
	assert.Nil(t, dedupeUIDs(nil))
}
