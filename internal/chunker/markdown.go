package chunker

import (
	"regexp"
	"strings"
)

// Markdown stripping patterns, applied in order by CleanMarkdown.
var (
	mdHeader     = regexp.MustCompile(`(?m)^#+\s+`)
	mdHRule      = regexp.MustCompile(`(?m)^[-=*]{3,}\s*$`)
	mdBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdBoldU      = regexp.MustCompile(`__([^_]+)__`)
	mdItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	mdItalicU    = regexp.MustCompile(`_([^_]+)_`)
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHTMLTag    = regexp.MustCompile(`<[^>]+>`)
	mdBullet     = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	mdOrdered    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdBlankRuns  = regexp.MustCompile(`\n{3,}`)
	mdSpaceRuns  = regexp.MustCompile(` {2,}`)
)

// CleanMarkdown strips markdown syntax from text so chunks carry prose
// rather than formatting: headers, horizontal rules, emphasis markers,
// inline code, links and images (keeping link text), HTML tags, and list
// markers are removed; blank-line runs collapse to a single paragraph
// break and repeated spaces collapse to one.
func CleanMarkdown(text string) string {
	text = mdHeader.ReplaceAllString(text, "")
	text = mdHRule.ReplaceAllString(text, "")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdBoldU.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdItalicU.ReplaceAllString(text, "$1")
	text = mdInlineCode.ReplaceAllString(text, "$1")
	// Images before links: the image pattern is a superset of the link pattern.
	text = mdImage.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdHTMLTag.ReplaceAllString(text, "")
	text = mdBullet.ReplaceAllString(text, "")
	text = mdOrdered.ReplaceAllString(text, "")
	text = mdBlankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = mdSpaceRuns.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
