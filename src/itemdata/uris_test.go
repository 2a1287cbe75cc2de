package itemdata

import (
	"strings"
	"testing"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

func TestGuidFromURI(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := GuidFromURI("https://remote.example/item/1", "remote.example")
		b := GuidFromURI("https://remote.example/item/1", "remote.example")
		assert.Equal(t, a, b)
	})
	t.Run("scheme does not matter", func(t *testing.T) {
		a := GuidFromURI("https://remote.example/item/1", "remote.example")
		b := GuidFromURI("http://remote.example/item/1", "remote.example")
		assert.Equal(t, a, b)
	})
	t.Run("host changes the prefix", func(t *testing.T) {
		a := GuidFromURI("https://remote.example/item/1", "remote.example")
		b := GuidFromURI("https://remote.example/item/1", "other.example")
		assert.NotEqual(t, a, b)
		assert.Equal(t, strings.SplitN(a, "-", 2)[1], strings.SplitN(b, "-", 2)[1])
	})
	t.Run("path changes the digest", func(t *testing.T) {
		a := GuidFromURI("https://remote.example/item/1", "remote.example")
		b := GuidFromURI("https://remote.example/item/2", "remote.example")
		assert.NotEqual(t, a, b)
	})
}

func TestDeriveGuid(t *testing.T) {
	t.Run("prefers the permalink", func(t *testing.T) {
		rec := &models.ItemRecord{
			URI:        "https://relay.example/seen/42",
			Plink:      "https://origin.example/posts/42",
			AuthorLink: "https://origin.example/alice",
		}
		assert.Equal(t, GuidFromURI("https://origin.example/posts/42", "origin.example"), DeriveGuid(rec))
	})
	t.Run("falls back to the uri", func(t *testing.T) {
		rec := &models.ItemRecord{URI: "https://origin.example/posts/42"}
		assert.Equal(t, GuidFromURI("https://origin.example/posts/42", "origin.example"), DeriveGuid(rec))
	})
	t.Run("idempotent across deliveries", func(t *testing.T) {
		// The same remote object, once direct and once through a relay that
		// rewrote nothing but the transport, must produce one guid.
		direct := &models.ItemRecord{
			URI:        "https://origin.example/posts/42",
			AuthorLink: "https://origin.example/alice",
		}
		relayed := &models.ItemRecord{
			URI:        "http://origin.example/posts/42",
			AuthorLink: "https://origin.example/alice",
		}
		assert.Equal(t, DeriveGuid(direct), DeriveGuid(relayed))
	})
	t.Run("random when nothing derivable exists", func(t *testing.T) {
		a := DeriveGuid(&models.ItemRecord{})
		b := DeriveGuid(&models.ItemRecord{})
		assert.NotEqual(t, a, b)
		assert.NotEmpty(t, a)
	})
}

func TestNewURI(t *testing.T) {
	uri := NewURI("thicket.example", 12, "abcd")
	assert.Equal(t, "urn:x-thicket:thicket.example:12:abcd", uri)
}
