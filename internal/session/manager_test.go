// internal/session/manager_test.go
package session

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/store"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func newTestManager() *Manager {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewManager(store.NewMemoryStore(), logger)
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Regexp(t, codePattern, GenerateCode())
	}
}

func TestCreateSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "Ms. Lee", models.ModeAlphabetWord, "Hello world this is testing.", 5)
	require.NoError(t, err)

	assert.Regexp(t, codePattern, sess.Code)
	assert.Equal(t, models.StatusWaiting, sess.Status)
	assert.Equal(t, int64(300), sess.Duration)
	assert.NotEmpty(t, sess.Targets.Words)
	assert.NotZero(t, sess.CreatedAt)

	snap, err := m.Snapshot(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, sess.Code, snap.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, err := m.CreateSession(ctx, "", models.ModeAlphabetWord, "text here", 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "   ", 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateSession(ctx, "Owner", "bogus-mode", "text here", 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "text here", 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateSessionRetriesOnCollision(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	codes := []string{"SAMECO", "SAMECO", "OTHERC"}
	m.codeFn = func() string {
		c := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return c
	}

	first, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)
	assert.Equal(t, "SAMECO", first.Code)

	second, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)
	assert.Equal(t, "OTHERC", second.Code, "collision must regenerate, not overwrite")

	snap, err := m.Snapshot(ctx, "SAMECO")
	require.NoError(t, err)
	assert.Equal(t, "Owner", snap.OwnerName)
}

func TestCreateSessionGivesUpAfterRepeatedCollisions(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	m.codeFn = func() string { return "SAMECO" }

	_, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	_, err = m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestJoinSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	sctx, snap, err := m.JoinSession(ctx, "Alice", sess.Code)
	require.NoError(t, err)
	require.NotEmpty(t, sctx.ParticipantID())

	p := snap.Participants[sctx.ParticipantID()]
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, models.InitialLives, p.Lives)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, 0, p.Progress)
	assert.Equal(t, models.ParticipantReady, p.Status)
}

func TestJoinSessionNormalizesCode(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	_, _, err = m.JoinSession(ctx, "Alice", "  "+strings.ToLower(sess.Code)+" ")
	assert.NoError(t, err)
}

func TestJoinUnknownCode(t *testing.T) {
	m := newTestManager()
	_, _, err := m.JoinSession(context.Background(), "Alice", "NOSUCH")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	// waiting -> paused is not a legal move
	err = m.SetStatus(ctx, sess.Code, models.StatusPaused)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, m.SetStatus(ctx, sess.Code, models.StatusActive))
	require.NoError(t, m.SetStatus(ctx, sess.Code, models.StatusPaused))
	require.NoError(t, m.SetStatus(ctx, sess.Code, models.StatusActive))
	require.NoError(t, m.SetStatus(ctx, sess.Code, models.StatusEnded))

	snap, err := m.Snapshot(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, snap.Status)
	assert.NotZero(t, snap.StatusChangedAt)
}

func TestEndedSessionIsImmutable(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)
	require.NoError(t, m.SetStatus(ctx, sess.Code, models.StatusEnded))

	assert.ErrorIs(t, m.SetStatus(ctx, sess.Code, models.StatusActive), ErrValidation)
	_, err = m.ExtendDuration(ctx, sess.Code, 30)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, m.BroadcastHint(ctx, sess.Code, "look again"), ErrValidation)
}

func TestOnEndedFires(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	ended := make(chan models.Session, 1)
	m.OnEnded = func(s models.Session) { ended <- s }

	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)
	require.NoError(t, m.SetStatus(ctx, sess.Code, models.StatusEnded))

	final := <-ended
	assert.Equal(t, sess.Code, final.Code)
	assert.Equal(t, models.StatusEnded, final.Status)
}

func TestExtendDurationAccumulates(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	total, err := m.ExtendDuration(ctx, sess.Code, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(330), total)

	total, err = m.ExtendDuration(ctx, sess.Code, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(390), total)

	snap, err := m.Snapshot(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(390), snap.Duration)
}

func TestBroadcastHint(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	assert.ErrorIs(t, m.BroadcastHint(ctx, sess.Code, "   "), ErrValidation)

	require.NoError(t, m.BroadcastHint(ctx, sess.Code, "try the long word"))
	snap, err := m.Snapshot(ctx, sess.Code)
	require.NoError(t, err)
	require.NotNil(t, snap.BroadcastHint)
	assert.Equal(t, "try the long word", snap.BroadcastHint.Text)
	assert.NotZero(t, snap.BroadcastHint.Timestamp)
}

func TestWatchDeliversFullSnapshots(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	sctx := m.OwnerContext(sess.Code)
	var got []models.Session
	require.NoError(t, sctx.Watch(ctx, func(s models.Session) { got = append(got, s) }))
	require.Len(t, got, 1, "current snapshot delivered on watch")

	_, _, err = m.JoinSession(ctx, "Alice", sess.Code)
	require.NoError(t, err)

	last := got[len(got)-1]
	assert.Len(t, last.Participants, 1, "participant join reaches session watchers")

	sctx.Leave(ctx)
}

func TestLeaveRemovesParticipant(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	sctx, _, err := m.JoinSession(ctx, "Alice", sess.Code)
	require.NoError(t, err)

	sctx.Leave(ctx)
	sctx.Leave(ctx) // safe to call twice

	snap, err := m.Snapshot(ctx, sess.Code)
	require.NoError(t, err)
	assert.Empty(t, snap.Participants)
}

func TestMirrorUpdatesRecord(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	sess, err := m.CreateSession(ctx, "Owner", models.ModeAlphabetWord, "Hello world text.", 5)
	require.NoError(t, err)

	sctx, snap, err := m.JoinSession(ctx, "Alice", sess.Code)
	require.NoError(t, err)

	p := snap.Participants[sctx.ParticipantID()]
	p.Score = 400
	p.Progress = 60
	p.Lives = 4
	sctx.Mirror(ctx, p)

	after, err := m.Snapshot(ctx, sess.Code)
	require.NoError(t, err)
	mirrored := after.Participants[sctx.ParticipantID()]
	assert.Equal(t, 400, mirrored.Score)
	assert.Equal(t, 60, mirrored.Progress)
	assert.Equal(t, 4, mirrored.Lives)
	assert.Equal(t, "Alice", mirrored.Name, "untouched fields survive the merge")
}
