package render

import (
	"strings"
	"testing"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/stretchr/testify/assert"
)

func TestBBCode(t *testing.T) {
	t.Run("bold", func(t *testing.T) {
		html := ToHTML("hello [b]world[/b]", DialectBBCode)
		t.Log(html)
		assert.Contains(t, html, "<b>world</b>")
	})
	t.Run("quote with cite", func(t *testing.T) {
		html := ToHTML("[quote=annabelle]sure[/quote]", DialectBBCode)
		t.Log(html)
		assert.Contains(t, html, "<blockquote")
		assert.Contains(t, html, `cite="annabelle"`)
	})
	t.Run("code keeps its contents verbatim", func(t *testing.T) {
		html := ToHTML("[code]\nx := y\n[/code]", DialectBBCode)
		t.Log(html)
		assert.Equal(t, 1, strings.Count(html, "<pre"))
		assert.Contains(t, html, "x := y")
	})
}

func TestMarkdown(t *testing.T) {
	t.Run("emphasis", func(t *testing.T) {
		html := ToHTML("hello *world*", DialectMarkdown)
		t.Log(html)
		assert.Contains(t, html, "<em>world</em>")
	})
	t.Run("bare links are linkified", func(t *testing.T) {
		html := ToHTML("see https://example.com/x", DialectMarkdown)
		assert.Contains(t, html, `<a href="https://example.com/x"`)
	})
}

func TestPlainDialect(t *testing.T) {
	html := ToHTML("a < b\nand so on", DialectPlain)
	assert.Contains(t, html, "a &lt; b")
	assert.Contains(t, html, "<br>")
}

func TestToPlaintext(t *testing.T) {
	assert.Equal(t, "hello world", ToPlaintext("hello [b]world[/b]", DialectBBCode))
	assert.Equal(t, "hello world", ToPlaintext("hello *world*", DialectMarkdown))
	assert.Equal(t, "hello world", ToPlaintext("hello world\n", DialectPlain))
}

func TestCacheHash(t *testing.T) {
	h1 := CacheHash(DialectBBCode, "hello")
	h2 := CacheHash(DialectBBCode, "hello")
	assert.Equal(t, h1, h2, "hash must be stable for identical input")
	assert.NotEqual(t, h1, CacheHash(DialectMarkdown, "hello"))
	assert.NotEqual(t, h1, CacheHash(DialectBBCode, "hello "))
	assert.Len(t, h1, 40)
}

func TestDialectForNetwork(t *testing.T) {
	assert.Equal(t, DialectBBCode, DialectForNetwork(models.NetworkNative))
	assert.Equal(t, DialectMarkdown, DialectForNetwork(models.NetworkActivityPub))
	assert.Equal(t, DialectPlain, DialectForNetwork(models.NetworkMail))
}
