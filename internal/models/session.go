// internal/models/session.go
package models

import "time"

// Mode selects which kind of targets a session plays against.
type Mode string

const (
	ModeAlphabetWord Mode = "alphabet-word" // spell a word letter by letter
	ModeWordSentence Mode = "word-sentence" // assemble a sentence word by word
	ModeMixedRelay   Mode = "mixed-relay"   // words first, then sentences
)

// ValidMode reports whether m is one of the three playable modes.
func ValidMode(m Mode) bool {
	switch m {
	case ModeAlphabetWord, ModeWordSentence, ModeMixedRelay:
		return true
	}
	return false
}

// Status is the owner-controlled session lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// CanTransitionTo constrains owner status changes to
// waiting->active, active<->paused, and any live state -> ended.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusActive || next == StatusEnded
	case StatusActive:
		return next == StatusPaused || next == StatusEnded
	case StatusPaused:
		return next == StatusActive || next == StatusEnded
	}
	return false
}

// Targets holds the canonical strings rounds are validated against.
// Either list may be empty, meaning "no valid target for that mode".
type Targets struct {
	Words     []string `json:"words"`
	Sentences []string `json:"sentences"`
}

// HintFreshWindow is how long a broadcast hint is considered fresh,
// measured against each consumer's local clock.
const HintFreshWindow = 5 * time.Second

// HintBroadcast is an owner announcement mirrored to every participant view.
type HintBroadcast struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// FreshAt reports whether the hint was broadcast within the freshness
// window relative to now. Cross-client clock skew is a known limitation.
func (h *HintBroadcast) FreshAt(now time.Time) bool {
	if h == nil {
		return false
	}
	return now.UnixMilli()-h.Timestamp < HintFreshWindow.Milliseconds()
}

// Session is the shared record coordinating one relay exercise. It is the
// wire contract between the coordinator view and every participant view.
type Session struct {
	Code            string                 `json:"code"`
	OwnerName       string                 `json:"ownerName"`
	Mode            Mode                   `json:"mode"`
	SourceText      string                 `json:"sourceText"`
	Targets         Targets                `json:"targets"`
	Duration        int64                  `json:"duration"` // seconds
	Status          Status                 `json:"status"`
	CreatedAt       int64                  `json:"createdAt"` // unix millis
	StatusChangedAt int64                  `json:"statusChangedAt,omitempty"`
	Participants    map[string]Participant `json:"participants,omitempty"`
	BroadcastHint   *HintBroadcast         `json:"broadcastHint,omitempty"`
}

// Remaining is the single authoritative countdown for every viewer:
// max(0, duration - (now - createdAt)). Local per-frame ticking is
// cosmetic interpolation between synchronization pulses, never truth.
func (s *Session) Remaining(now time.Time) time.Duration {
	elapsed := now.Sub(time.UnixMilli(s.CreatedAt))
	remaining := time.Duration(s.Duration)*time.Second - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Roster returns the participants as a slice for aggregate computations.
// Order is unspecified; aggregations must not depend on it.
func (s *Session) Roster() []Participant {
	roster := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		roster = append(roster, p)
	}
	return roster
}
