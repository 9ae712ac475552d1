// internal/models/tier.go
package models

// Difficulty names a preset hint/time budget for a participant.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyTier is the configuration a difficulty resolves to.
type DifficultyTier struct {
	DurationSec  int  `json:"durationSec"`
	HintsEnabled bool `json:"hintsEnabled"`
	MaxHints     int  `json:"maxHints"`
}

// TierFor maps a difficulty to its budget. Unknown difficulties fall back
// to easy, which is effectively unlimited hints.
func TierFor(d Difficulty) DifficultyTier {
	switch d {
	case DifficultyMedium:
		return DifficultyTier{DurationSec: 180, HintsEnabled: true, MaxHints: 5}
	case DifficultyHard:
		return DifficultyTier{DurationSec: 120, HintsEnabled: false, MaxHints: 0}
	default:
		return DifficultyTier{DurationSec: 300, HintsEnabled: true, MaxHints: 999}
	}
}
