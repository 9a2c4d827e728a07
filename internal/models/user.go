package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Level is the user's growth stage on the savings path.
type Level int

const (
	LevelSprout  Level = 1
	LevelSapling Level = 2
	LevelBush    Level = 3
	LevelOak     Level = 4
	LevelForest  Level = 5
)

// Progress holds the counters that drive level-ups.
type Progress struct {
	ExpensesCount  int     `json:"expenses_count"`
	FormalityIndex float64 `json:"formality_index"`
}

// Profile is the per-user gamification profile persisted alongside the
// ledger. Records written by older schema versions may miss newer fields;
// the repository applies defaults on load.
type Profile struct {
	Level    Level    `json:"level"`
	Progress Progress `json:"progress"`
}

// DefaultProfile returns the profile assigned to a fresh user.
func DefaultProfile() Profile {
	return Profile{Level: LevelSprout}
}
