// Package models defines the core domain models for Mama-Chef.
//
// # Chat Models
//
//   - Turn: one message in a conversation (user or assistant)
//   - Content / Part: the provider-neutral request shape sent to the model
//   - Profile: the child profile that parameterizes every outgoing request
//
// # Tracker Models
//
//   - RecognizedItem: one food item recognized on a photo, editable until saved
//   - SavedMeal: a frozen snapshot of the included items plus their totals
//   - Totals: kcal and macro grams, always derived from items, never stored alone
//   - Targets: daily reference intake used for percent-of-target
//
// # Design Principles
//
//  1. Per-100g values of a RecognizedItem never change after ingest; only the
//     portion and the included flag are user-editable.
//  2. Totals are recomputed from items on every read and keep full precision;
//     rounding happens at display time only.
//  3. Relationships use ID strings instead of pointers.
package models
