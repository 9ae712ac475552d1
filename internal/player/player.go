// internal/player/player.go
package player

import (
	"errors"
	"sync"
	"time"

	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/round"
)

// ErrHintUnavailable is returned when the participant's tier has hints
// disabled or the hint budget is exhausted. It never mutates score.
var ErrHintUnavailable = errors.New("hint unavailable")

// Scoring economy constants.
const (
	ScorePerUnit      = 100 // correct round: +ScorePerUnit * path length
	ProgressPerRound  = 20  // fixed per-correct-round increment
	HintCost          = 10
	DefaultCooldown   = 3 * time.Second
	cooldownResetLive = 1
)

// State owns one participant's lives/score/progress economy. A participant
// is never permanently eliminated: reaching zero lives starts a cooldown,
// after which lives reset to exactly one (soft-fail recovery by design).
//
// All mutations clamp lives to [0,5], score to >= 0 and progress to [0,100].
type State struct {
	mu        sync.Mutex
	p         models.Participant
	tier      models.DifficultyTier
	hintsUsed int

	cooldownDur   time.Duration
	cooldownTimer *time.Timer

	// OnChange mirrors the updated record outward after every mutation.
	// May be nil. Mirror failures are the caller's concern; the local
	// state here stays authoritative either way.
	OnChange func(models.Participant)
}

// New builds the state for a freshly joined participant.
func New(p models.Participant, tier models.DifficultyTier) *State {
	return &State{p: p, tier: tier, cooldownDur: DefaultCooldown}
}

// SetCooldown overrides the out-of-lives cooldown duration. Zero collapses
// the cooldown to an immediate reset, which tests rely on.
func (s *State) SetCooldown(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldownDur = d
}

// Participant returns a copy of the current record.
func (s *State) Participant() models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// HintsUsed returns how many hint credits have been consumed.
func (s *State) HintsUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hintsUsed
}

// ApplyVerdict mutates the economy for one resolved round.
// Correct: score += 100 * pathLen, one life back (capped), +20 progress
// (capped). Incorrect: one life down; hitting zero starts the cooldown.
func (s *State) ApplyVerdict(v round.Verdict, pathLen int) {
	s.mu.Lock()
	switch v {
	case round.VerdictCorrect:
		s.p.Score += ScorePerUnit * pathLen
		if s.p.Lives < models.MaxLives {
			s.p.Lives++
		}
		// a life earned back ends the cooldown; the pending reset would
		// otherwise clobber it down to one
		if s.cooldownTimer != nil {
			s.cooldownTimer.Stop()
			s.cooldownTimer = nil
		}
		s.p.Progress += ProgressPerRound
		if s.p.Progress > models.MaxProgress {
			s.p.Progress = models.MaxProgress
		}
		if s.p.Status == models.ParticipantReady {
			s.p.Status = models.ParticipantActive
		}
	case round.VerdictIncorrect:
		s.p.Lives--
		if s.p.Lives <= 0 {
			s.p.Lives = 0
			s.startCooldownLocked()
		}
	}
	s.clampLocked()
	s.touchLocked()
	snap := s.p
	s.mu.Unlock()
	s.notify(snap)
}

// startCooldownLocked schedules the lives reset. Assumes lock is held.
func (s *State) startCooldownLocked() {
	if s.cooldownTimer != nil {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.cooldownDur, func() {
		s.mu.Lock()
		if s.cooldownTimer != timer {
			// stale timer, a newer one owns the reset
			s.mu.Unlock()
			return
		}
		s.cooldownTimer = nil
		if s.p.Lives != 0 {
			// lives recovered through play since the timer was armed
			s.mu.Unlock()
			return
		}
		s.p.Lives = cooldownResetLive
		s.touchLocked()
		snap := s.p
		s.mu.Unlock()
		s.notify(snap)
	})
	s.cooldownTimer = timer
}

// InCooldown reports whether the participant is waiting out a lives reset.
func (s *State) InCooldown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldownTimer != nil
}

// UseHint consumes one hint credit and charges the hint cost, flooring the
// score at zero. The next required unit comes from reveal, which must not
// mutate the path. Fails with ErrHintUnavailable, leaving score untouched,
// when the tier disables hints or the budget is spent.
func (s *State) UseHint(reveal func() (string, bool)) (string, error) {
	s.mu.Lock()
	if !s.tier.HintsEnabled || s.hintsUsed >= s.tier.MaxHints {
		s.mu.Unlock()
		return "", ErrHintUnavailable
	}
	s.p.Score -= HintCost
	if s.p.Score < 0 {
		s.p.Score = 0
	}
	s.hintsUsed++
	s.touchLocked()
	snap := s.p
	s.mu.Unlock()
	s.notify(snap)

	unit, ok := reveal()
	if !ok {
		return "", nil
	}
	return unit, nil
}

// AdvanceStage bumps the participant's stage index after a correct round
// moves the relay forward.
func (s *State) AdvanceStage(stage int) {
	s.mu.Lock()
	s.p.CurrentStage = stage
	s.touchLocked()
	snap := s.p
	s.mu.Unlock()
	s.notify(snap)
}

// CompleteStage marks the participant finished: progress pinned to 100,
// status done, final state mirrored outward.
func (s *State) CompleteStage() {
	s.mu.Lock()
	s.p.Progress = models.MaxProgress
	s.p.Status = models.ParticipantDone
	s.touchLocked()
	snap := s.p
	s.mu.Unlock()
	s.notify(snap)
}

// Stop cancels any pending cooldown timer. Called when the participant
// leaves the session.
func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cooldownTimer != nil {
		s.cooldownTimer.Stop()
		s.cooldownTimer = nil
	}
}

func (s *State) clampLocked() {
	if s.p.Lives < 0 {
		s.p.Lives = 0
	}
	if s.p.Lives > models.MaxLives {
		s.p.Lives = models.MaxLives
	}
	if s.p.Score < 0 {
		s.p.Score = 0
	}
	if s.p.Progress < 0 {
		s.p.Progress = 0
	}
	if s.p.Progress > models.MaxProgress {
		s.p.Progress = models.MaxProgress
	}
}

func (s *State) touchLocked() {
	s.p.LastUpdate = time.Now().UnixMilli()
}

func (s *State) notify(snap models.Participant) {
	if s.OnChange != nil {
		s.OnChange(snap)
	}
}
