// internal/session/context.go
package session

import (
	"context"
	"sync"

	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/store"
)

// Context is one connection's handle on a session. It is created on join
// (or OwnerContext for the coordinator), threaded through every operation
// for that connection, and torn down on Leave. There is no ambient global
// session instance.
type Context struct {
	mgr           *Manager
	code          string
	participantID string

	mu      sync.Mutex
	cancels []store.CancelFunc
	closed  bool
}

func newContext(m *Manager, code, participantID string) *Context {
	return &Context{mgr: m, code: code, participantID: participantID}
}

// Code returns the session code this context is bound to.
func (c *Context) Code() string { return c.code }

// ParticipantID returns this connection's participant id, empty for the
// owner.
func (c *Context) ParticipantID() string { return c.participantID }

// Watch subscribes to the session record. fn receives a freshly assembled
// full snapshot on every change, including participant sub-record changes;
// consumers recompute derived state from it each time rather than patching.
func (c *Context) Watch(ctx context.Context, fn func(models.Session)) error {
	cancel, err := c.mgr.store.Subscribe(ctx, sessionPath(c.code), func(_ []byte, ok bool) {
		if !ok {
			return
		}
		snap, err := c.mgr.Snapshot(context.Background(), c.code)
		if err != nil {
			c.mgr.log.Warnf("session %s: snapshot after change failed: %v", c.code, err)
			return
		}
		fn(*snap)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		cancel()
		return nil
	}
	c.cancels = append(c.cancels, cancel)
	return nil
}

// Mirror pushes the participant's current record to the store. The local
// state is optimistic and stays authoritative for this session regardless
// of mirror success, so store failures are logged and swallowed.
func (c *Context) Mirror(ctx context.Context, p models.Participant) {
	if c.participantID == "" {
		return
	}
	err := c.mgr.store.Merge(ctx, participantPath(c.code, c.participantID), map[string]any{
		"lives":        p.Lives,
		"score":        p.Score,
		"progress":     p.Progress,
		"currentStage": p.CurrentStage,
		"status":       p.Status,
		"lastUpdate":   p.LastUpdate,
	})
	if err != nil {
		c.mgr.log.Warnf("session %s: mirror for participant %s failed: %v", c.code, c.participantID, err)
	}
}

// Leave removes this connection's participant sub-record and detaches all
// subscriptions. In-flight writes are fire-and-forget. Safe to call twice.
func (c *Context) Leave(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if c.participantID != "" {
		if err := c.mgr.store.Remove(ctx, participantPath(c.code, c.participantID)); err != nil {
			c.mgr.log.Warnf("session %s: remove participant %s failed: %v", c.code, c.participantID, err)
		}
	}
}
