// Package markdown turns user-written text into safe HTML for display and
// strips markup from text sent to the backend.
package markdown

import (
	"bytes"
	stdhtml "html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

type TextProcessor struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a processor for post and event descriptions: paragraphs with
// hard line breaks, lists, code, emphasis and autolinked URLs. Headings and
// raw HTML are not parsed.
func New() *TextProcessor {
	p := parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(parser.NewFencedCodeBlockParser(), 700),
			util.Prioritized(parser.NewBlockquoteParser(), 800),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(
			util.Prioritized(parser.NewCodeSpanParser(), 100),
			util.Prioritized(parser.NewLinkParser(), 200),
			util.Prioritized(parser.NewAutoLinkParser(), 300),
			util.Prioritized(parser.NewEmphasisParser(), 500),
		),
		parser.WithParagraphTransformers(
			util.Prioritized(parser.LinkReferenceParagraphTransformer, 100),
		),
	)

	md := goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithRendererOptions(html.WithHardWraps()),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)
	return &TextProcessor{md: md, policy: descriptionPolicy()}
}

// Render converts text to sanitized HTML. On a conversion error the escaped
// text is returned so a description is never lost.
func (tp *TextProcessor) Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := tp.md.Convert([]byte(text), &buf); err != nil {
		return tp.policy.Sanitize(string(util.EscapeHTML([]byte(text))))
	}
	return strings.TrimSpace(tp.policy.Sanitize(buf.String()))
}

func descriptionPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowRelativeURLs(false)
	return p
}

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

// Plain removes every tag from s and trims it. Used for free text the
// backend stores verbatim, such as rejection notes. Entities the policy
// escapes are decoded again, so "a & b" survives unchanged.
func Plain(s string) string {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(stdhtml.UnescapeString(strict.Sanitize(s)))
}
