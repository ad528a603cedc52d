// Package render turns campaign content into HTML and plain-text email
// bodies and applies Liquid personalization per recipient.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/ignite/courier/internal/domain"
)

// HTML renders a campaign body. Block content takes precedence over the
// flat HTML field when both are present; a campaign with neither renders
// to an empty body.
func HTML(c *domain.Campaign) string {
	if len(c.Blocks) > 0 {
		return BlocksHTML(c.Blocks)
	}
	return c.HTMLContent
}

// Plain renders the plain-text alternative.
func Plain(c *domain.Campaign) string {
	if len(c.Blocks) > 0 {
		return BlocksPlain(c.Blocks)
	}
	return c.PlainContent
}

// BlocksHTML renders an ordered block sequence to an HTML fragment. Total:
// every kind renders to something, and unknown kinds render to nothing
// rather than failing the whole body.
func BlocksHTML(blocks domain.Blocks) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case domain.BlockText:
			b.WriteString(`<div class="block-text">`)
			b.WriteString(blk.Content)
			b.WriteString("</div>\n")
		case domain.BlockImage:
			src, alt := "", ""
			if blk.Image != nil {
				src = blk.Image.URL
				alt = blk.Image.Alt
			}
			if src == "" {
				continue
			}
			fmt.Fprintf(&b, `<div class="block-image"><img src=%q alt=%q style="max-width:100%%"></div>%s`,
				src, alt, "\n")
		case domain.BlockQuote:
			b.WriteString(`<blockquote class="block-quote">`)
			b.WriteString(html.EscapeString(blk.Content))
			if blk.Quote != nil && blk.Quote.Author != "" {
				fmt.Fprintf(&b, `<footer>%s</footer>`, html.EscapeString(blk.Quote.Author))
			}
			b.WriteString("</blockquote>\n")
		case domain.BlockList:
			tag := "ul"
			if blk.List != nil && blk.List.Ordered {
				tag = "ol"
			}
			fmt.Fprintf(&b, "<%s class=\"block-list\">\n", tag)
			for _, item := range splitListItems(blk.Content) {
				fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(item))
			}
			fmt.Fprintf(&b, "</%s>\n", tag)
		case domain.BlockSeparator:
			b.WriteString("<hr>\n")
		}
	}
	return b.String()
}

// BlocksPlain renders blocks to the plain-text alternative body.
func BlocksPlain(blocks domain.Blocks) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case domain.BlockText:
			b.WriteString(stripTags(blk.Content))
			b.WriteString("\n\n")
		case domain.BlockImage:
			if blk.Image != nil && blk.Image.Alt != "" {
				fmt.Fprintf(&b, "[%s]\n\n", blk.Image.Alt)
			}
		case domain.BlockQuote:
			b.WriteString("> " + blk.Content)
			if blk.Quote != nil && blk.Quote.Author != "" {
				b.WriteString("\n> -- " + blk.Quote.Author)
			}
			b.WriteString("\n\n")
		case domain.BlockList:
			for i, item := range splitListItems(blk.Content) {
				if blk.List != nil && blk.List.Ordered {
					fmt.Fprintf(&b, "%d. %s\n", i+1, item)
				} else {
					fmt.Fprintf(&b, "- %s\n", item)
				}
			}
			b.WriteString("\n")
		case domain.BlockSeparator:
			b.WriteString("----------\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitListItems treats each non-empty line of a list block's content as
// one item.
func splitListItems(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

var tagPattern = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

func stripTags(s string) string {
	s = tagPattern.Replace(s)
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(html.UnescapeString(b.String()))
}
