package contract

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name             string
		raw              string
		wantText         string
		wantShopping     bool
		wantSubscription bool
		wantBlocks       int
	}{
		{
			name:         "shopping list with json block",
			raw:          "Список готов [SHOPPING_LIST_READY]\n```json\n{\"a\":1}\n```",
			wantText:     "Список готов",
			wantShopping: true,
			wantBlocks:   1,
		},
		{
			name:     "plain text is only trimmed",
			raw:      "  Привет!  \n",
			wantText: "Привет!",
		},
		{
			name:             "paywall tag",
			raw:              "Это доступно в Pro. [NEEDS_SUBSCRIPTION]",
			wantText:         "Это доступно в Pro.",
			wantSubscription: true,
		},
		{
			name:         "every occurrence removed",
			raw:          "[SHOPPING_LIST_READY]a[SHOPPING_LIST_READY]b[SHOPPING_LIST_READY]",
			wantText:     "ab",
			wantShopping: true,
		},
		{
			name:       "tag inside json block is ignored",
			raw:        "Меню на день\n```json\n{\"note\":\"[SHOPPING_LIST_READY] [NEEDS_SUBSCRIPTION]\"}\n```",
			wantText:   "Меню на день",
			wantBlocks: 1,
		},
		{
			name:             "both tags and two blocks",
			raw:              "```json\n{}\n```Ответ [NEEDS_SUBSCRIPTION] [SHOPPING_LIST_READY]\n```JSON\n[1]\n```",
			wantText:         "Ответ",
			wantShopping:     true,
			wantSubscription: true,
			wantBlocks:       2,
		},
		{
			name:       "only a block leaves empty text",
			raw:        "```json\n{\"mode\":\"NORMAL\"}\n```",
			wantText:   "",
			wantBlocks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got.DisplayText != tt.wantText {
				t.Errorf("DisplayText = %q, want %q", got.DisplayText, tt.wantText)
			}
			if got.ShoppingListReady != tt.wantShopping {
				t.Errorf("ShoppingListReady = %v, want %v", got.ShoppingListReady, tt.wantShopping)
			}
			if got.NeedsSubscription != tt.wantSubscription {
				t.Errorf("NeedsSubscription = %v, want %v", got.NeedsSubscription, tt.wantSubscription)
			}
			if len(got.Blocks) != tt.wantBlocks {
				t.Errorf("len(Blocks) = %d, want %d", len(got.Blocks), tt.wantBlocks)
			}
			for _, tag := range []string{ShoppingListTag, SubscriptionTag, "```"} {
				if strings.Contains(got.DisplayText, tag) {
					t.Errorf("DisplayText %q still contains %q", got.DisplayText, tag)
				}
			}
		})
	}
}

func TestParseFlagIffTagPresent(t *testing.T) {
	inputs := []string{
		"",
		"no tags here",
		"[SHOPPING_LIST_READY]",
		"x [SHOPPING_LIST_READY] y [SHOPPING_LIST_READY]",
		"[SHOPPING_LIST_READ]",
		"```json\n[SHOPPING_LIST_READY]\n```",
	}
	for _, in := range inputs {
		outside := jsonBlockPattern.ReplaceAllString(in, "")
		want := strings.Contains(outside, ShoppingListTag)
		if got := Parse(in).ShoppingListReady; got != want {
			t.Errorf("Parse(%q).ShoppingListReady = %v, want %v", in, got, want)
		}
	}
}

func TestReplyDisplay(t *testing.T) {
	if got := Parse("   ").Display(); got != EmptyReplyText {
		t.Errorf("Display() = %q, want fallback", got)
	}
	if got := Parse("ok").Display(); got != "ok" {
		t.Errorf("Display() = %q, want %q", got, "ok")
	}
}
