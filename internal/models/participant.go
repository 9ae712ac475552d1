// internal/models/participant.go
package models

// ParticipantStatus tracks one participant's place in the exercise.
type ParticipantStatus string

const (
	ParticipantReady  ParticipantStatus = "ready"
	ParticipantActive ParticipantStatus = "active"
	ParticipantDone   ParticipantStatus = "done"
)

// Lives and progress bounds. Every mutation clamps back into these ranges.
const (
	MaxLives     = 5
	InitialLives = 3
	MaxProgress  = 100
)

// Participant is one individual's sub-record inside a session. By convention
// the participant's own client is the sole writer of this record; the owner
// client only ever reads it.
type Participant struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Lives        int               `json:"lives"`
	Score        int               `json:"score"`
	Progress     int               `json:"progress"`
	CurrentStage int               `json:"currentStage"`
	Status       ParticipantStatus `json:"status"`
	JoinedAt     int64             `json:"joinedAt"` // unix millis
	LastUpdate   int64             `json:"lastUpdate,omitempty"`
}

// NewParticipant builds the initial record written on join.
func NewParticipant(id, name string, joinedAt int64) Participant {
	return Participant{
		ID:       id,
		Name:     name,
		Lives:    InitialLives,
		Status:   ParticipantReady,
		JoinedAt: joinedAt,
	}
}
