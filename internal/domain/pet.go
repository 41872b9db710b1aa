package domain

import "slices"

// Pet growth rules.
const (
	FeedExpGain = 20
	MaxPetLevel = 5
	MaxPetExp   = 100
	MinPetLevel = 1
)

// PetState is the per-student virtual pet document (students.pet_data).
type PetState struct {
	Name       string
	Level      int
	Exp        int
	LastFed    Date
	OwnedItems []string
	Background string
}

// DefaultPet returns the pet a student starts with.
func DefaultPet() PetState {
	return PetState{
		Name:  "드래곤",
		Level: MinPetLevel,
	}
}

// Owns reports whether itemID is among the owned items.
func (p PetState) Owns(itemID string) bool {
	return slices.Contains(p.OwnedItems, itemID)
}

// Clone returns a deep copy so that candidate states never alias the mirror.
func (p PetState) Clone() PetState {
	p.OwnedItems = slices.Clone(p.OwnedItems)
	return p
}

// Normalize clamps level and exp into their valid ranges.
func (p PetState) Normalize() PetState {
	p.Level = min(max(p.Level, MinPetLevel), MaxPetLevel)
	p.Exp = min(max(p.Exp, 0), MaxPetExp)
	return p
}

// Fed returns the pet after one feeding on day today and whether it leveled up.
// Below the level cap exp rolls over into the next level; at the cap exp
// clamps at MaxPetExp.
func (p PetState) Fed(today Date) (PetState, bool) {
	next := p.Clone()
	next.LastFed = today

	exp := next.Exp + FeedExpGain
	switch {
	case next.Level >= MaxPetLevel:
		next.Level = MaxPetLevel
		next.Exp = min(exp, MaxPetExp)
		return next, false
	case exp >= MaxPetExp:
		next.Level++
		next.Exp = exp % MaxPetExp
		return next, true
	default:
		next.Exp = exp
		return next, false
	}
}

// WithItem returns the pet with itemID appended to the owned items.
func (p PetState) WithItem(itemID string) PetState {
	next := p.Clone()
	if !next.Owns(itemID) {
		next.OwnedItems = append(next.OwnedItems, itemID)
	}
	return next
}

// Neglect says what a degeneration check did to a pet.
type Neglect int

const (
	// NeglectNone leaves the pet untouched.
	NeglectNone Neglect = iota
	// NeglectClockStarted gives a never-fed pet LastFed=today, no penalty.
	NeglectClockStarted
	// NeglectPenalized drops a level and resets exp.
	NeglectPenalized
)

// Changed reports whether the pet must be written back.
func (n Neglect) Changed() bool { return n != NeglectNone }

// Degenerate applies the neglect penalty. If the pet has gone unfed for at
// least thresholdDays calendar days, it loses one level (floor MinPetLevel),
// exp resets, and LastFed moves to today. A never-fed pet gets LastFed=today
// without a penalty.
//
// Running it twice on the same day is a no-op the second time.
func (p PetState) Degenerate(today Date, thresholdDays int) (PetState, Neglect) {
	if p.LastFed.IsZero() {
		next := p.Clone()
		next.LastFed = today
		return next, NeglectClockStarted
	}
	if p.LastFed.DaysUntil(today) < thresholdDays {
		return p, NeglectNone
	}

	next := p.Clone()
	next.Level = max(next.Level-1, MinPetLevel)
	next.Exp = 0
	next.LastFed = today
	return next, NeglectPenalized
}
