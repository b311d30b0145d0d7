package models

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
// Turns are immutable once appended to a conversation.
type Turn struct {
	// ID is the unique identifier for the turn (UUID format).
	ID string `json:"id"`

	// Role is either user or assistant.
	Role Role `json:"role"`

	// Text is the display text. For assistant turns it is the cleaned text,
	// with contract tags and structured blocks already removed.
	Text string `json:"text"`

	// Image is an optional inline image: the user's photo or an edited photo
	// returned by the assistant.
	Image *InlineData `json:"image,omitempty"`

	// Video is set on assistant turns that carry an animated photo.
	Video *InlineData `json:"video,omitempty"`

	// IsShoppingList is set when the assistant reply announced a ready shopping list.
	IsShoppingList bool `json:"isShoppingList,omitempty"`

	// NeedsSubscription is set when the assistant reply hit the paywall.
	NeedsSubscription bool `json:"needsSubscription,omitempty"`

	// CreatedAt is when the turn was appended.
	CreatedAt time.Time `json:"createdAt"`
}

// InlineData is a decoded image payload carried alongside a turn or request.
type InlineData struct {
	// MIMEType is the image media type (e.g. "image/jpeg").
	MIMEType string `json:"mimeType"`

	// Data is the raw (decoded) image bytes.
	Data []byte `json:"data"`
}

// Part is one segment of a request content: either text or inline data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// Content is an ordered list of parts authored by one role.
// Role uses the model vocabulary: "user" or "model".
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}
