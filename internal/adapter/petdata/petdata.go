// Package petdata encodes the students.pet_data JSON document shared by the
// Supabase and Postgres adapters.
package petdata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

type document struct {
	Name       string   `json:"name"`
	Level      int      `json:"level"`
	Exp        int      `json:"exp"`
	LastFed    string   `json:"lastFed,omitempty"`
	OwnedItems []string `json:"ownedItems"`
	Background string   `json:"background,omitempty"`
}

// Encode renders a pet as its stored JSON document.
func Encode(p domain.PetState) (json.RawMessage, error) {
	owned := p.OwnedItems
	if owned == nil {
		owned = []string{}
	}
	b, err := json.Marshal(document{
		Name:       p.Name,
		Level:      p.Level,
		Exp:        p.Exp,
		LastFed:    p.LastFed.String(),
		OwnedItems: owned,
		Background: p.Background,
	})
	if err != nil {
		return nil, fmt.Errorf("petdata: encode: %w", err)
	}
	return b, nil
}

// Decode parses a stored document. A missing or null document yields the
// default pet; out-of-range level and exp are clamped.
func Decode(raw []byte) (domain.PetState, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.DefaultPet(), nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.PetState{}, fmt.Errorf("petdata: decode: %w", err)
	}

	lastFed, err := domain.ParseDate(doc.LastFed)
	if err != nil {
		return domain.PetState{}, fmt.Errorf("petdata: %w", err)
	}

	pet := domain.PetState{
		Name:       doc.Name,
		Level:      doc.Level,
		Exp:        doc.Exp,
		LastFed:    lastFed,
		OwnedItems: doc.OwnedItems,
		Background: doc.Background,
	}
	if pet.Name == "" {
		pet.Name = domain.DefaultPet().Name
	}
	return pet.Normalize(), nil
}
