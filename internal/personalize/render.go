// Package personalize substitutes recipient fields into campaign text.
package personalize

import (
	"regexp"
	"strings"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

// DefaultName is used when a recipient has no name on file.
const DefaultName = "Valued Member"

type rule struct {
	pattern *regexp.Regexp
	value   func(m model.Member) string
}

// Patterns match the text between the brackets of a single token.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`(?i)^\s*(?:name\s*\(?\s*bangla\s*\)?|bangla\s+name|name\s+in\s+bangla)\s*$`),
		value: func(m model.Member) string {
			if n := strings.TrimSpace(m.NameBangla); n != "" {
				return n
			}
			return nameOf(m)
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)^\s*(?:recipient'?s?\s+|member'?s?\s+|full\s+)?(?:full\s+)?name\s*$`),
		value:   nameOf,
	},
	{
		pattern: regexp.MustCompile(`(?i)^\s*e-?mail(?:\s+address)?\s*$`),
		value:   func(m model.Member) string { return m.Email },
	},
	{
		pattern: regexp.MustCompile(`(?i)^\s*(?:mobile|phone)(?:\s+number)?\s*$`),
		value:   func(m model.Member) string { return m.Mobile },
	},
	{
		pattern: regexp.MustCompile(`(?i)^\s*membership\s+type\s*$`),
		value:   func(m model.Member) string { return m.Type() },
	},
	{
		pattern: regexp.MustCompile(`(?i)^\s*membership\s+(?:code|id|number)\s*$`),
		value:   func(m model.Member) string { return m.MembershipCode },
	},
	{
		pattern: regexp.MustCompile(`(?i)^\s*batch\s*$`),
		value:   func(m model.Member) string { return m.Batch },
	},
}

var tokenPattern = regexp.MustCompile(`\[([^\[\]]{1,64})\]`)

func nameOf(m model.Member) string {
	if n := strings.TrimSpace(m.Name); n != "" {
		return n
	}
	return DefaultName
}

// Render replaces recognized placeholders in template with fields of m in a
// single pass, so substituted values are never scanned again. Unrecognized
// tokens are left untouched.
func Render(template string, m model.Member) string {
	if template == "" || !strings.Contains(template, "[") {
		return template
	}

	var extra map[string]string
	if len(m.Extra) > 0 {
		extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			extra[normalizeKey(k)] = v
		}
	}

	return tokenPattern.ReplaceAllStringFunc(template, func(tok string) string {
		inner := tok[1 : len(tok)-1]
		for _, r := range rules {
			if r.pattern.MatchString(inner) {
				return r.value(m)
			}
		}
		if v, ok := extra[normalizeKey(inner)]; ok {
			return v
		}
		return tok
	})
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), "_")
}

// RenderMessage personalizes subject and body for one recipient and picks the
// address for channel.
func RenderMessage(channel model.Channel, subject, body string, m model.Member) model.PersonalizedMessage {
	msg := model.PersonalizedMessage{
		RecipientID: m.ID,
		Text:        Render(body, m),
	}
	switch channel {
	case model.ChannelEmail:
		msg.To = strings.TrimSpace(m.Email)
		msg.Subject = Render(subject, m)
	case model.ChannelSMS, model.ChannelWhatsApp:
		msg.To = strings.TrimSpace(m.Mobile)
	}
	return msg
}
