package domain

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is a class notice written by a teacher.
type Announcement struct {
	ID        string
	ClassID   uuid.UUID
	Title     string
	Body      string
	CreatedAt time.Time
	Seen      bool
}
