package conversation

import (
	"strings"

	"github.com/mmynk/mamachef/internal/models"
)

// DefaultImagePrompt replaces the text of an image-only turn so a request
// never carries an image without instructions.
const DefaultImagePrompt = "Проанализируй это фото еды."

// Model-side role names.
const (
	ModelRoleUser  = "user"
	ModelRoleModel = "model"
)

// QuickAction prompts offered as one-tap buttons.
var QuickActions = map[string]string{
	"scan_fridge": "Что можно приготовить из того, что есть в холодильнике? (Можешь прислать фото или перечислить продукты)",
	"tell_story":  "Расскажи сказку за едой, чтобы малыш поел с аппетитом!",
}

// RequestParts converts a turn into request segments: the inline image first
// when present, then the text. An image-only turn gets DefaultImagePrompt.
// A turn with neither yields no parts.
func RequestParts(turn models.Turn) []models.Part {
	var parts []models.Part
	if turn.Image != nil {
		parts = append(parts, models.Part{InlineData: turn.Image})
	}
	switch {
	case strings.TrimSpace(turn.Text) != "":
		parts = append(parts, models.Part{Text: turn.Text})
	case turn.Image != nil:
		parts = append(parts, models.Part{Text: DefaultImagePrompt})
	}
	return parts
}

// ModelRole maps a turn role onto the model vocabulary.
func ModelRole(r models.Role) string {
	if r == models.RoleAssistant {
		return ModelRoleModel
	}
	return ModelRoleUser
}

// History builds the request contents for a new user turn: the previous turns
// as text-only contents followed by pending with its full parts. Empty
// history text is sent as a single space.
func History(previous []models.Turn, pending models.Turn) ([]models.Content, error) {
	parts := RequestParts(pending)
	if len(parts) == 0 {
		return nil, ErrEmptyTurn
	}

	contents := make([]models.Content, 0, len(previous)+1)
	for _, turn := range previous {
		text := turn.Text
		if text == "" {
			text = " "
		}
		contents = append(contents, models.Content{
			Role:  ModelRole(turn.Role),
			Parts: []models.Part{{Text: text}},
		})
	}
	contents = append(contents, models.Content{Role: ModelRoleUser, Parts: parts})
	return contents, nil
}
