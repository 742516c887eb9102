// Package format renders personalized campaign text per channel.
package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Signature is appended to every email.
type Signature struct {
	Organization string
	Tagline      string
	Website      string
}

var (
	subjectLine = regexp.MustCompile(`(?i)^\s*subject\s*:[^\n]*(?:(?:\r?\n)+|$)`)
	boldStars   = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	boldStar    = regexp.MustCompile(`\*([^*\n]+?)\*`)
	italic      = regexp.MustCompile(`\b_([^_\n]+?)_\b`)
	bullet      = regexp.MustCompile(`^\s*[-*]\s+`)
	paraSplit   = regexp.MustCompile(`\n\s*\n`)
)

// StripSubjectLine drops a leading "Subject: ..." line that content
// generation sometimes leaves in the body.
func StripSubjectLine(s string) string {
	return subjectLine.ReplaceAllString(s, "")
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(StripSubjectLine(strings.TrimLeft(s, "\n")))
}

// EmailHTML converts lightly marked-up text into the campaign email document.
func EmailHTML(body, imageURL string, sig Signature) string {
	body = normalize(body)
	if body == "" && imageURL == "" {
		return ""
	}

	var content strings.Builder
	for _, para := range paraSplit.Split(body, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		content.WriteString(renderBlock(para))
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:20px;background-color:#f4f4f4;font-family:Arial,Helvetica,sans-serif;">
<div style="max-width:600px;margin:0 auto;background-color:#ffffff;border:1px solid #e0e0e0;border-radius:8px;padding:30px;color:#333333;line-height:1.6;">
`)
	b.WriteString(content.String())
	if imageURL != "" {
		fmt.Fprintf(&b, `<div style="margin:24px 0;text-align:center;"><img src="%s" alt="" style="max-width:100%%;height:auto;border-radius:6px;"></div>
`, html.EscapeString(imageURL))
	}
	b.WriteString(signatureHTML(sig))
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func renderBlock(para string) string {
	lines := strings.Split(para, "\n")
	var b strings.Builder
	var text []string
	var items []string

	flushText := func() {
		if len(text) > 0 {
			b.WriteString("<p>" + strings.Join(text, "<br>\n") + "</p>\n")
			text = nil
		}
	}
	flushList := func() {
		if len(items) > 0 {
			b.WriteString("<ul>\n")
			for _, it := range items {
				b.WriteString("<li>" + it + "</li>\n")
			}
			b.WriteString("</ul>\n")
			items = nil
		}
	}

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if bullet.MatchString(line) {
			flushText()
			items = append(items, inline(bullet.ReplaceAllString(line, "")))
			continue
		}
		flushList()
		text = append(text, inline(strings.TrimSpace(line)))
	}
	flushText()
	flushList()
	return b.String()
}

// inline escapes raw text, then re-inserts the permitted emphasis tags.
func inline(s string) string {
	s = html.EscapeString(s)
	s = boldStars.ReplaceAllString(s, "<strong>$1</strong>")
	s = boldStar.ReplaceAllString(s, "<strong>$1</strong>")
	return italic.ReplaceAllString(s, "<em>$1</em>")
}

func signatureHTML(sig Signature) string {
	if sig.Organization == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div style="margin-top:30px;padding-top:16px;border-top:1px solid #e0e0e0;color:#666666;font-size:14px;">`)
	b.WriteString("<p>Best regards,<br><strong>" + html.EscapeString(sig.Organization) + "</strong>")
	if sig.Tagline != "" {
		b.WriteString("<br>" + html.EscapeString(sig.Tagline))
	}
	if sig.Website != "" {
		w := html.EscapeString(sig.Website)
		b.WriteString(`<br><a href="` + w + `" style="color:#1a73e8;">` + w + `</a>`)
	}
	b.WriteString("</p></div>\n")
	return b.String()
}

// EmailText is the plain-text sibling of EmailHTML.
func EmailText(body string, sig Signature) string {
	body = normalize(body)
	if body == "" {
		return ""
	}
	body = boldStars.ReplaceAllString(body, "$1")
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if bullet.MatchString(line) {
			line = "• " + bullet.ReplaceAllString(line, "")
		}
		line = boldStar.ReplaceAllString(line, "$1")
		lines[i] = italic.ReplaceAllString(line, "$1")
	}
	out := strings.Join(lines, "\n")
	if sig.Organization != "" {
		out += "\n\nBest regards,\n" + sig.Organization
		if sig.Tagline != "" {
			out += "\n" + sig.Tagline
		}
		if sig.Website != "" {
			out += "\n" + sig.Website
		}
	}
	return out
}

// PlainText is used as-is for SMS and social channels.
func PlainText(s string) string {
	return strings.TrimSpace(s)
}
