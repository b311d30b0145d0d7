package models

// AgeBracket is the child's age range in years.
type AgeBracket string

const (
	Age0To1  AgeBracket = "0-1"
	Age1To2  AgeBracket = "1-2"
	Age2To3  AgeBracket = "2-3"
	Age3To5  AgeBracket = "3-5"
	Age5To7  AgeBracket = "5-7"
	Age7To10 AgeBracket = "7-10"
)

// AgeBrackets lists all supported brackets in ascending order.
var AgeBrackets = []AgeBracket{Age0To1, Age1To2, Age2To3, Age3To5, Age5To7, Age7To10}

// SubscriptionTier is the billing state of the session.
type SubscriptionTier string

const (
	TierTrial   SubscriptionTier = "trial"
	TierActive  SubscriptionTier = "active"
	TierExpired SubscriptionTier = "expired"
)

// Profile parameterizes outgoing chat requests.
// It is mutated only by explicit settings actions and read by request building.
type Profile struct {
	// AgeBracket is one of the fixed ranges in AgeBrackets.
	AgeBracket AgeBracket `json:"ageBracket"`

	// IsSick switches the assistant into the "child is sick" menu mode.
	IsSick bool `json:"isSick"`

	// Subscription controls the paywall behaviour of the assistant.
	Subscription SubscriptionTier `json:"subscription"`
}
