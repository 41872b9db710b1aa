package domain

import "github.com/google/uuid"

// Student is the read model of a students row. ID equals the Supabase auth uid.
type Student struct {
	ID          uuid.UUID
	Name        string
	ClassID     *uuid.UUID
	TotalPoints int
	Pet         PetState
}
