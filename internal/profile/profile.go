// Package profile holds the per-session child profile and turns it into the
// system instruction for chat requests.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/mamachef/internal/models"
)

var ErrInvalidProfile = errors.New("invalid profile")

// SubscribedMessage is appended as an assistant turn after a successful subscription.
const SubscribedMessage = "🎉 **Поздравляю! Подписка PRO успешно активирована.** \n\n" +
	"Теперь вам снова доступны все сложные рационы, персональные меню на неделю и премиум-функции. Что приготовим?"

// Default returns the profile of a new session.
func Default() models.Profile {
	return models.Profile{
		AgeBracket:   models.Age1To2,
		IsSick:       false,
		Subscription: models.TierTrial,
	}
}

// ParseAgeBracket accepts exactly one of models.AgeBrackets.
func ParseAgeBracket(s string) (models.AgeBracket, error) {
	s = strings.TrimSpace(s)
	for _, b := range models.AgeBrackets {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: unknown age bracket %q", ErrInvalidProfile, s)
}

// ParseTier accepts trial, active or expired.
func ParseTier(s string) (models.SubscriptionTier, error) {
	switch t := models.SubscriptionTier(strings.ToLower(strings.TrimSpace(s))); t {
	case models.TierTrial, models.TierActive, models.TierExpired:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown subscription tier %q", ErrInvalidProfile, s)
	}
}

// Update is a partial profile change; nil fields are left untouched.
type Update struct {
	AgeBracket   *string `json:"ageBracket,omitempty"`
	IsSick       *bool   `json:"isSick,omitempty"`
	Subscription *string `json:"subscription,omitempty"`
}

// Apply validates u and returns the updated profile. p is not modified.
func Apply(p models.Profile, u Update) (models.Profile, error) {
	if u.AgeBracket != nil {
		b, err := ParseAgeBracket(*u.AgeBracket)
		if err != nil {
			return p, err
		}
		p.AgeBracket = b
	}
	if u.IsSick != nil {
		p.IsSick = *u.IsSick
	}
	if u.Subscription != nil {
		t, err := ParseTier(*u.Subscription)
		if err != nil {
			return p, err
		}
		p.Subscription = t
	}
	return p, nil
}

// Subscribe activates the subscription.
func Subscribe(p models.Profile) models.Profile {
	p.Subscription = models.TierActive
	return p
}
