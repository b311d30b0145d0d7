// Package contract turns raw model replies into display text and typed signals.
//
// The assistant is instructed to embed control tags and a fenced JSON block in
// its prose. Parse removes the JSON block first and only then scans the
// remaining text for tags, so a tag quoted inside the block never raises a
// signal.
package contract

import (
	"regexp"
	"strings"
)

const (
	// ShoppingListTag marks a reply that ends with a ready shopping list.
	ShoppingListTag = "[SHOPPING_LIST_READY]"
	// SubscriptionTag marks a reply that was refused by the paywall rules.
	SubscriptionTag = "[NEEDS_SUBSCRIPTION]"

	// EmptyReplyText is shown instead of an empty reply.
	EmptyReplyText = "Не удалось получить ответ. Попробуйте переформулировать вопрос."
)

var jsonBlockPattern = regexp.MustCompile("(?is)```json\\s*(.*?)```")

// Reply is the parsed form of a raw model reply.
type Reply struct {
	// DisplayText is the cleaned, trimmed text. It may be empty; use Display.
	DisplayText string

	ShoppingListReady bool
	NeedsSubscription bool

	// Blocks holds the bodies of the removed JSON blocks, in order.
	Blocks []string

	// Insights is the first JSON block that parsed, nil if none did.
	Insights *Insights
}

// Display returns the text to show, never an empty string.
func (r Reply) Display() string {
	if r.DisplayText == "" {
		return EmptyReplyText
	}
	return r.DisplayText
}

// Parse extracts the contract signals from a raw reply. It never fails: text
// without blocks or tags comes back trimmed and otherwise unchanged.
func Parse(raw string) Reply {
	var reply Reply

	text := jsonBlockPattern.ReplaceAllStringFunc(raw, func(block string) string {
		m := jsonBlockPattern.FindStringSubmatch(block)
		body := strings.TrimSpace(m[1])
		reply.Blocks = append(reply.Blocks, body)
		if reply.Insights == nil {
			if ins, ok := ParseInsights(body); ok {
				reply.Insights = ins
			}
		}
		return ""
	})

	if strings.Contains(text, ShoppingListTag) {
		reply.ShoppingListReady = true
		text = strings.ReplaceAll(text, ShoppingListTag, "")
	}
	if strings.Contains(text, SubscriptionTag) {
		reply.NeedsSubscription = true
		text = strings.ReplaceAll(text, SubscriptionTag, "")
	}

	reply.DisplayText = strings.TrimSpace(text)
	return reply
}
