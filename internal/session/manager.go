// internal/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/store"
	"github.com/wordrelay/relay/internal/words"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// maxCodeAttempts bounds regeneration when a freshly generated code
	// collides with a live session.
	maxCodeAttempts = 5
)

// GenerateCode yields a 6-character session code over [A-Z0-9]. Uniqueness
// is enforced separately with a conditional store write at creation time.
func GenerateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// Manager owns session lifecycle against the replicated store: creation,
// join, owner status transitions, hint broadcast and duration extension.
// Per-connection state lives in Context values handed out by JoinSession
// and OwnerContext; the manager itself holds no ambient session state.
type Manager struct {
	store store.Store
	log   *logrus.Logger

	codeFn func() string // test hook, defaults to GenerateCode

	// OnEnded runs once, on its own goroutine, when a session transitions
	// to ended. Typically wired to the results archive. May be nil.
	OnEnded func(sess models.Session)
}

// NewManager builds a Manager over a store.
func NewManager(s store.Store, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{store: s, log: logger, codeFn: GenerateCode}
}

func sessionPath(code string) string      { return "sessions/" + code }
func participantsPath(code string) string { return sessionPath(code) + "/participants" }
func participantPath(code, id string) string {
	return participantsPath(code) + "/" + id
}

// CreateSession claims a unique code, derives targets from the source text
// and persists the waiting session. The owner drives it from there.
func (m *Manager) CreateSession(ctx context.Context, ownerName string, mode models.Mode, sourceText string, durationMinutes int) (*models.Session, error) {
	ownerName = strings.TrimSpace(ownerName)
	sourceText = strings.TrimSpace(sourceText)
	if ownerName == "" || sourceText == "" {
		return nil, fmt.Errorf("%w: owner name and source text are required", ErrValidation)
	}
	if !models.ValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	targets := words.Generate(mode, sourceText)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := m.codeFn()
		sess := models.Session{
			Code:       code,
			OwnerName:  ownerName,
			Mode:       mode,
			SourceText: sourceText,
			Targets:    targets,
			Duration:   int64(durationMinutes) * 60,
			Status:     models.StatusWaiting,
			CreatedAt:  time.Now().UnixMilli(),
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		claimed, err := m.store.SetIfAbsent(ctx, sessionPath(code), data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		if !claimed {
			m.log.Warnf("session code %s collided, regenerating", code)
			continue
		}
		m.log.WithFields(logrus.Fields{"code": code, "mode": mode}).Info("session created")
		return &sess, nil
	}
	return nil, fmt.Errorf("%w: could not claim a unique code", ErrCreateFailed)
}

// JoinSession adds a participant to a live session and returns the
// connection-scoped context plus the current session snapshot. The code is
// normalized to uppercase before lookup.
func (m *Manager) JoinSession(ctx context.Context, name, code string) (*Context, *models.Session, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, nil, fmt.Errorf("%w: name and session code are required", ErrValidation)
	}

	sess, err := m.Snapshot(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	id, err := m.store.CreateChild(ctx, participantsPath(code))
	if err != nil {
		return nil, nil, fmt.Errorf("create participant: %w", err)
	}
	p := models.NewParticipant(id, name, time.Now().UnixMilli())
	data, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal participant: %w", err)
	}
	if err := m.store.Write(ctx, participantPath(code, id), data); err != nil {
		return nil, nil, fmt.Errorf("persist participant: %w", err)
	}
	m.log.WithFields(logrus.Fields{"code": code, "participant": id, "name": name}).Info("participant joined")

	if sess.Participants == nil {
		sess.Participants = map[string]models.Participant{}
	}
	sess.Participants[id] = p

	return newContext(m, code, id), sess, nil
}

// OwnerContext returns a connection context for the session owner. Owner
// contexts carry no participant sub-record.
func (m *Manager) OwnerContext(code string) *Context {
	return newContext(m, strings.ToUpper(strings.TrimSpace(code)), "")
}

// ResumeContext rebinds a new connection to a participant created by an
// earlier join. Whether the participant still exists is the caller's
// concern.
func (m *Manager) ResumeContext(code, participantID string) *Context {
	return newContext(m, strings.ToUpper(strings.TrimSpace(code)), participantID)
}

// Snapshot assembles the full current session record, participants
// included, from the store.
func (m *Manager) Snapshot(ctx context.Context, code string) (*models.Session, error) {
	data, ok, err := m.store.Read(ctx, sessionPath(code))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", code, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", code, err)
	}

	children, err := m.store.ReadChildren(ctx, participantsPath(code))
	if err != nil {
		return nil, fmt.Errorf("read participants of %s: %w", code, err)
	}
	sess.Participants = make(map[string]models.Participant, len(children))
	for id, raw := range children {
		var p models.Participant
		if err := json.Unmarshal(raw, &p); err != nil {
			m.log.Warnf("session %s: skipping undecodable participant %s: %v", code, id, err)
			continue
		}
		sess.Participants[id] = p
	}
	return &sess, nil
}

// SetStatus applies an owner status change, constrained to the transition
// graph waiting->active, active<->paused, any-live-state->ended. Ended
// sessions are immutable.
func (m *Manager) SetStatus(ctx context.Context, code string, next models.Status) error {
	sess, err := m.Snapshot(ctx, code)
	if err != nil {
		return err
	}
	if sess.Status == models.StatusEnded {
		return fmt.Errorf("%w: session has ended", ErrValidation)
	}
	if !sess.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot transition %s -> %s", ErrValidation, sess.Status, next)
	}

	now := time.Now().UnixMilli()
	err = m.store.Merge(ctx, sessionPath(code), map[string]any{
		"status":          next,
		"statusChangedAt": now,
	})
	if err != nil {
		return fmt.Errorf("write status of %s: %w", code, err)
	}
	m.log.WithFields(logrus.Fields{"code": code, "from": sess.Status, "to": next}).Info("session status changed")

	if next == models.StatusEnded && m.OnEnded != nil {
		final := *sess
		final.Status = models.StatusEnded
		final.StatusChangedAt = now
		go m.OnEnded(final)
	}
	return nil
}

// ExtendDuration atomically adds deltaSeconds to the session duration and
// returns the new total. Concurrent owner actions cannot lose updates.
func (m *Manager) ExtendDuration(ctx context.Context, code string, deltaSeconds int64) (int64, error) {
	sess, err := m.Snapshot(ctx, code)
	if err != nil {
		return 0, err
	}
	if sess.Status == models.StatusEnded {
		return 0, fmt.Errorf("%w: session has ended", ErrValidation)
	}
	total, err := m.store.Increment(ctx, sessionPath(code), "duration", deltaSeconds)
	if err != nil {
		return 0, fmt.Errorf("extend duration of %s: %w", code, err)
	}
	return total, nil
}

// BroadcastHint publishes an owner hint with the broadcast timestamp.
// Consumers apply the freshness window against their own clock.
func (m *Manager) BroadcastHint(ctx context.Context, code, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: hint text is required", ErrValidation)
	}
	sess, err := m.Snapshot(ctx, code)
	if err != nil {
		return err
	}
	if sess.Status == models.StatusEnded {
		return fmt.Errorf("%w: session has ended", ErrValidation)
	}
	hint := models.HintBroadcast{Text: text, Timestamp: time.Now().UnixMilli()}
	if err := m.store.Merge(ctx, sessionPath(code), map[string]any{"broadcastHint": hint}); err != nil {
		return fmt.Errorf("broadcast hint to %s: %w", code, err)
	}
	return nil
}
