package render

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"strings"

	"git.thicket.social/thicket/thicket/src/models"
	"github.com/frustra/bbcode"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Version participates in the render cache hash. Bump it whenever the output
// of any renderer changes, so cached HTML gets regenerated.
const Version = "2"

// Dialect identifies the markup language an item body arrives in. It is a
// property of the delivering network, not of the item.
type Dialect string

const (
	DialectBBCode   Dialect = "bbcode"
	DialectMarkdown Dialect = "markdown"
	DialectPlain    Dialect = "plain"
)

func DialectForNetwork(n models.Network) Dialect {
	switch n {
	case models.NetworkNative, models.NetworkOStatus:
		return DialectBBCode
	case models.NetworkActivityPub, models.NetworkDiaspora:
		return DialectMarkdown
	default:
		return DialectPlain
	}
}

// Used for generating the final HTML for markdown-dialect bodies.
var Markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
)

// Used for generating plain-text previews of markdown-dialect bodies.
var PlaintextMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRenderer(plaintextRenderer{}),
)

var bbCompiler = bbcode.NewCompiler(true, true)

func init() {
	addSimpleTag := func(name, tag string, attrs map[string]string) {
		bbCompiler.SetTag(name, func(bn *bbcode.BBCodeNode) (*bbcode.HTMLTag, bool) {
			out := bbcode.NewHTMLTag("")
			out.Name = tag
			for k, v := range attrs {
				out.Attrs[k] = v
			}
			return out, true
		})
	}

	addSimpleTag("h1", "h1", nil)
	addSimpleTag("h2", "h3", nil)
	addSimpleTag("h3", "h3", nil)
	addSimpleTag("ol", "ol", nil)
	addSimpleTag("ul", "ul", nil)
	addSimpleTag("li", "li", nil)
	addSimpleTag("spoiler", "span", map[string]string{"class": "spoiler"})

	bbCompiler.SetTag("quote", func(bn *bbcode.BBCodeNode) (*bbcode.HTMLTag, bool) {
		out := bbcode.NewHTMLTag("")
		out.Name = "blockquote"
		if cite := bn.GetOpeningTag().Value; cite != "" {
			out.Attrs["cite"] = cite
		}
		return out, true
	})

	bbCompiler.SetTag("code", func(bn *bbcode.BBCodeNode) (*bbcode.HTMLTag, bool) {
		out := bbcode.NewHTMLTag("")
		out.Name = "pre"
		code := bbcode.NewHTMLTag("")
		code.Name = "code"
		code.AppendChild(bbcode.NewHTMLTag(strings.TrimPrefix(bbcode.CompileText(bn), "\n")))
		out.AppendChild(code)
		return out, false
	})
}

// ToHTML renders a raw body into HTML according to its dialect. It never
// fails; garbage markup degrades to escaped text.
func ToHTML(body string, dialect Dialect) string {
	switch dialect {
	case DialectBBCode:
		return bbCompiler.Compile(body)
	case DialectMarkdown:
		var buf bytes.Buffer
		if err := Markdown.Convert([]byte(body), &buf); err != nil {
			return plainToHTML(body)
		}
		return buf.String()
	default:
		return plainToHTML(body)
	}
}

// ToPlaintext reduces a raw body to plain text, for previews and language
// detection input.
func ToPlaintext(body string, dialect Dialect) string {
	switch dialect {
	case DialectBBCode:
		return strings.TrimSpace(reBBTag.ReplaceAllString(body, ""))
	case DialectMarkdown:
		var buf bytes.Buffer
		if err := PlaintextMarkdown.Convert([]byte(body), &buf); err != nil {
			return strings.TrimSpace(body)
		}
		return strings.TrimSpace(buf.String())
	default:
		return strings.TrimSpace(body)
	}
}

var reBBTag = regexp.MustCompile(`\[\s*/?\s*[a-zA-Z0-9]+[^\]]*\]`)

func plainToHTML(body string) string {
	escaped := html.EscapeString(body)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>\n") + "</p>"
}

// CacheHash keys the render cache. Re-rendering is required only when the
// stored hash differs from the current one for the same raw body.
func CacheHash(dialect Dialect, rawBody string) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s", Version, dialect, rawBody)))
	return hex.EncodeToString(h[:])
}
