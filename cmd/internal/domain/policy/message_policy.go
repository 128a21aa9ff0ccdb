package policy

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf16"

	"ephemchat/cmd/internal/utils/apierror"
)

// MaxMessageLength is measured in UTF-16 code units, the unit browsers count in.
const MaxMessageLength = 1000

var defaultBlockedWords = []string{
	"fuck", "shit", "ass", "bitch", "damn", "dick", "cock", "cunt",
	"bastard", "asshole", "motherfucker", "bullshit", "piss", "crap",
}

// MessagePolicy encapsulates all content rules for chat messages.
// It returns apierror.ErrorResponse directly for seamless integration with the gateway.
type MessagePolicy struct {
	blocked *regexp.Regexp
}

// NewMessagePolicy builds the policy with the default word list plus any extra words.
func NewMessagePolicy(extra ...string) *MessagePolicy {
	words := make([]string, 0, len(defaultBlockedWords)+len(extra))
	for _, w := range append(append([]string{}, defaultBlockedWords...), extra...) {
		w = strings.TrimSpace(strings.ToLower(w))
		if w != "" {
			words = append(words, regexp.QuoteMeta(w))
		}
	}

	return &MessagePolicy{
		blocked: regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`),
	}
}

// Sanitize trims the content and escapes the characters meaningful to HTML.
func (p *MessagePolicy) Sanitize(content string) string {
	return html.EscapeString(strings.TrimSpace(content))
}

// Mask replaces every blocked word with asterisks of the same length.
func (p *MessagePolicy) Mask(content string) string {
	return p.blocked.ReplaceAllStringFunc(content, func(word string) string {
		return strings.Repeat("*", len(word))
	})
}

func (p *MessagePolicy) ContainsProfanity(content string) bool {
	return p.blocked.MatchString(content)
}

// Prepare runs the whole content pipeline: sanitize, mask, then validate.
// The returned content is what gets persisted and broadcast.
func (p *MessagePolicy) Prepare(content string) (string, apierror.ErrorResponse) {
	clean := p.Mask(p.Sanitize(content))
	if clean == "" {
		return "", apierror.EmptyMessageError
	}

	if len(utf16.Encode([]rune(clean))) > MaxMessageLength {
		return "", apierror.NewMessageTooLongError(MaxMessageLength)
	}
	return clean, nil
}
