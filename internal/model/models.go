// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// CHAT MODEL TYPE
// =============================================================================

// ChatModel describes a model the backend offers for role-play sessions.
type ChatModel struct {
	// ID is the model key sent when creating or configuring a session.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	Description string `json:"description"`
	Provider    string `json:"provider"`

	// PriceHint is a free-form cost blurb shown next to the model.
	PriceHint string `json:"price_hint"`

	// PriceCoins is the per-message cost in platform coins (0 for free models).
	PriceCoins int64 `json:"price_coins"`
}

// IsFree reports whether sending with this model costs nothing.
func (m ChatModel) IsFree() bool {
	return m.PriceCoins <= 0
}

// Summary returns a one-line description suitable for lists.
func (m ChatModel) Summary() string {
	parts := []string{}
	if m.Provider != "" {
		parts = append(parts, m.Provider)
	}
	switch {
	case m.PriceHint != "":
		parts = append(parts, m.PriceHint)
	case m.IsFree():
		parts = append(parts, "Free")
	default:
		parts = append(parts, fmt.Sprintf("%d coins", m.PriceCoins))
	}

	name := m.Name
	if name == "" {
		name = m.ID
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(parts, ", "))
}

// FindModel returns the model with the given id.
func FindModel(models []ChatModel, id string) (ChatModel, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ChatModel{}, false
}

// SortModelsByPrice orders models cheapest first, then by name.
func SortModelsByPrice(models []ChatModel) {
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].PriceCoins != models[j].PriceCoins {
			return models[i].PriceCoins < models[j].PriceCoins
		}
		return models[i].Name < models[j].Name
	})
}
