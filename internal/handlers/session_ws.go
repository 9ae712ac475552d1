// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wordrelay/relay/internal/analytics"
	"github.com/wordrelay/relay/internal/auth"
	"github.com/wordrelay/relay/internal/cache"
	"github.com/wordrelay/relay/internal/middleware"
	"github.com/wordrelay/relay/internal/models"
	"github.com/wordrelay/relay/internal/player"
	"github.com/wordrelay/relay/internal/round"
	"github.com/wordrelay/relay/internal/session"
	"github.com/wordrelay/relay/internal/words"
)

// wsConn is a single client's presence on the session socket.
type wsConn struct {
	OutChan chan map[string]interface{}
	Cancel  context.CancelFunc
	logger  *logrus.Logger
}

// Write pushes a message onto the OutChan non-blockingly. Logs if dropped.
func (c *wsConn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		c.logger.Warnf("session ws: OutChan full or closed, dropped message type %q", msgType)
	}
}

// WriteError is a convenience to send an error object.
func (c *wsConn) WriteError(msg string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// SessionWSHandler upgrades /session/ws/{code} connections. The owner
// authenticates with the token from create and drives status, hints and
// duration; a participant resumes the record from join and plays rounds.
// Every client receives a full session snapshot on every store change.
func SessionWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		code := strings.ToUpper(strings.Trim(strings.TrimPrefix(r.URL.Path, "/session/ws/"), "/"))
		if code == "" {
			http.Error(w, "missing session code", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"relay"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "relay" {
			c.Close(BadSubprotocolError, "client must speak the relay subprotocol")
			return
		}

		snap, err := s.Manager.Snapshot(r.Context(), code)
		if err != nil {
			c.Close(InvalidSessionCodeError, "session does not exist")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := &wsConn{
			OutChan: make(chan map[string]interface{}, 16),
			Cancel:  cancel,
			logger:  logger,
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			token = ownerTokenFromCookie(r.Header.Get("Cookie"))
		}
		participantID := r.URL.Query().Get("participant")

		var sctx *session.Context
		var play *playState

		switch {
		case token != "":
			tokenCode, err := auth.VerifyOwnerToken(token)
			if err != nil || tokenCode != code {
				c.Close(InvalidOwnerTokenError, "invalid owner token for this session")
				return
			}
			sctx = s.Manager.OwnerContext(code)
			logger.Infof("owner connected to session %s from %s", code, remoteAddr)

		case participantID != "":
			p, ok := snap.Participants[participantID]
			if !ok {
				c.Close(InvalidParticipantError, "unknown participant")
				return
			}
			sctx = s.Manager.ResumeContext(code, participantID)
			tier := models.TierFor(models.Difficulty(r.URL.Query().Get("difficulty")))
			play = newPlayState(snap, p, tier)
			play.state.OnChange = func(p models.Participant) {
				// optimistic local state stays authoritative; the mirror
				// write may fail and gameplay continues regardless
				sctx.Mirror(context.Background(), p)
			}
			logger.Infof("participant %s connected to session %s from %s", participantID, code, remoteAddr)

		default:
			c.Close(websocket.StatusPolicyViolation, "owner token or participant id required")
			return
		}

		go writePump(ctx, c, conn, logger)

		if err := sctx.Watch(ctx, func(sess models.Session) {
			if play != nil {
				play.setStatus(sess.Status)
			}
			conn.Write(sessionUpdateMsg(sess))
		}); err != nil {
			logger.Warnf("session %s: watch failed: %v", code, err)
			c.Close(websocket.StatusInternalError, "subscription failed")
			return
		}

		if play != nil && play.rnd != nil {
			conn.Write(play.roundStartMsg())
		}

		readPump(ctx, c, s, sctx, conn, play, logger)

		// cleanup after readPump exits: a participant leaving removes the
		// sub-record; the owner only detaches subscriptions
		if play != nil {
			play.state.Stop()
		}
		sctx.Leave(context.Background())
		middleware.LogWebSocketDisconnect(logger, remoteAddr, code, nil)
	}
}

// writePump serializes outgoing messages for one client.
func writePump(ctx context.Context, c *websocket.Conn, conn *wsConn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("session ws: marshal outgoing: %v", err)
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

// readPump handles incoming messages until the connection closes.
func readPump(ctx context.Context, c *websocket.Conn, s *Server, sctx *session.Context, conn *wsConn, play *playState, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus != websocket.StatusNormalClosure && closeStatus != websocket.StatusGoingAway &&
				!strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("session %s: read error: %v", sctx.Code(), err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			conn.WriteError("Invalid JSON format")
			continue
		}

		if leave := handleSessionMessage(ctx, s, sctx, conn, play, packet); leave {
			return
		}
	}
}

// handleSessionMessage interprets the "type" field. Owner commands are only
// honored on owner connections (play == nil); round commands only on
// participant connections. Returns true when the client asked to leave.
func handleSessionMessage(ctx context.Context, s *Server, sctx *session.Context, conn *wsConn, play *playState, packet map[string]interface{}) bool {
	action, _ := packet["type"].(string)

	// owner-only session controls
	if play == nil {
		switch action {
		case "start":
			ownerOp(conn, s.Manager.SetStatus(ctx, sctx.Code(), models.StatusActive))
		case "pause":
			ownerOp(conn, s.Manager.SetStatus(ctx, sctx.Code(), models.StatusPaused))
		case "resume":
			ownerOp(conn, s.Manager.SetStatus(ctx, sctx.Code(), models.StatusActive))
		case "end":
			ownerOp(conn, s.Manager.SetStatus(ctx, sctx.Code(), models.StatusEnded))
		case "extend":
			seconds := int64(30)
			if v, ok := packet["seconds"].(float64); ok && v > 0 {
				seconds = int64(v)
			}
			total, err := s.Manager.ExtendDuration(ctx, sctx.Code(), seconds)
			if err != nil {
				conn.WriteError(err.Error())
				break
			}
			conn.Write(map[string]interface{}{"type": "duration_extended", "duration": total})
		case "hint_broadcast":
			text, _ := packet["text"].(string)
			ownerOp(conn, s.Manager.BroadcastHint(ctx, sctx.Code(), text))
		case "leave":
			return true
		default:
			conn.WriteError("unknown command")
		}
		return false
	}

	// participant round mechanics
	switch action {
	case "select":
		idx, ok := packet["index"].(float64)
		if !ok {
			conn.WriteError("select requires an index")
			break
		}
		play.handleSelect(ctx, sctx, conn, int(idx))
	case "undo":
		if play.rnd != nil {
			play.rnd.Undo()
			conn.Write(play.pathUpdateMsg())
		}
	case "clear":
		if play.rnd != nil {
			play.rnd.Clear()
			conn.Write(play.pathUpdateMsg())
		}
	case "hint":
		play.handleHint(conn)
	case "heartbeat":
		sctx.Mirror(ctx, play.state.Participant())
	case "leave":
		return true
	default:
		conn.WriteError("unknown command")
	}
	return false
}

func ownerOp(conn *wsConn, err error) {
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.Write(map[string]interface{}{"type": "ok"})
}

// sessionUpdateMsg recomputes every derived statistic from the full
// snapshot; deliveries are replacements, never patches.
func sessionUpdateMsg(sess models.Session) map[string]interface{} {
	roster := sess.Roster()
	now := time.Now()
	return map[string]interface{}{
		"type":         "session_update",
		"session":      sess,
		"teamProgress": analytics.TeamProgress(roster),
		"teamComplete": analytics.TeamComplete(roster),
		"stats":        analytics.Compute(roster),
		"remaining":    int64(sess.Remaining(now).Seconds()),
		"hintFresh":    sess.BroadcastHint.FreshAt(now),
	}
}

// playState is one participant connection's round progression: the target
// walk, the active round and the lives/score economy. It lives and dies
// with the connection.
type playState struct {
	relay *round.Relay
	rnd   *round.Round
	state *player.State
	rng   *rand.Rand
	code  string
	pid   string

	// session status mirrored from store deliveries; rounds only run while
	// the owner has the session active
	statusMu sync.Mutex
	status   models.Status
}

func newPlayState(sess *models.Session, p models.Participant, tier models.DifficultyTier) *playState {
	ps := &playState{
		relay:  round.NewRelay(sess.Mode, sess.Targets),
		state:  player.New(p, tier),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		code:   sess.Code,
		pid:    p.ID,
		status: sess.Status,
	}
	ps.startRound()
	return ps
}

func (ps *playState) setStatus(status models.Status) {
	ps.statusMu.Lock()
	ps.status = status
	ps.statusMu.Unlock()
}

func (ps *playState) currentStatus() models.Status {
	ps.statusMu.Lock()
	defer ps.statusMu.Unlock()
	return ps.status
}

// startRound builds a fresh board for the relay's current target. Reports
// false when the mode has no target left, which is not an error.
func (ps *playState) startRound() bool {
	kind, target, ok := ps.relay.Current()
	if !ok {
		ps.rnd = nil
		return false
	}
	var nodes []words.Node
	if kind == round.KindLetters {
		nodes = words.LetterBoard(target, ps.rng)
	} else {
		nodes = words.WordBoard(target, ps.rng)
	}
	ps.rnd = round.New(kind, target, nodes)
	return true
}

func (ps *playState) roundStartMsg() map[string]interface{} {
	return map[string]interface{}{
		"type":      "round_start",
		"target":    ps.rnd.Target(),
		"kind":      int(ps.rnd.Kind()),
		"unitCount": ps.rnd.UnitCount(),
		"nodes":     ps.rnd.Nodes(),
		"stage":     ps.relay.Stage(),
	}
}

func (ps *playState) pathUpdateMsg() map[string]interface{} {
	return map[string]interface{}{
		"type": "path_update",
		"path": ps.rnd.PathValues(),
	}
}

// handleSelect appends a unit and, when the path reaches the target's unit
// count, resolves immediately. The verdict is authoritative the moment it
// is computed; any feedback pacing is the client's presentation concern.
func (ps *playState) handleSelect(ctx context.Context, sctx *session.Context, conn *wsConn, idx int) {
	if ps.currentStatus() != models.StatusActive {
		conn.WriteError("session is not active")
		return
	}
	if ps.rnd == nil {
		conn.WriteError("no active round")
		return
	}
	complete := ps.rnd.Select(idx)
	conn.Write(ps.pathUpdateMsg())
	if !complete {
		return
	}

	pathLen := ps.rnd.PathLen()
	target := ps.rnd.Target()
	verdict := ps.rnd.Resolve()
	ps.state.ApplyVerdict(verdict, pathLen)

	if err := cache.PublishRoundRecord(ctx, cache.RoundRecord{
		SessionCode:   ps.code,
		ParticipantID: ps.pid,
		Verdict:       verdict.String(),
		PathLen:       pathLen,
		Target:        target,
		Timestamp:     time.Now().UnixMilli(),
	}); err != nil {
		conn.logger.Warnf("session %s: round record publish failed: %v", ps.code, err)
	}

	conn.Write(map[string]interface{}{
		"type":    "round_result",
		"verdict": verdict.String(),
		"target":  target,
	})
	if verdict != round.VerdictCorrect {
		return
	}

	if ps.state.Participant().Progress >= models.MaxProgress || !ps.relay.Advance() {
		ps.state.CompleteStage()
		ps.rnd = nil
		conn.Write(map[string]interface{}{"type": "stage_complete"})
		return
	}
	ps.state.AdvanceStage(ps.relay.Stage())
	ps.startRound()
	conn.Write(ps.roundStartMsg())
}

// handleHint reveals the next required unit without touching the path.
func (ps *playState) handleHint(conn *wsConn) {
	if ps.currentStatus() != models.StatusActive {
		conn.WriteError("session is not active")
		return
	}
	if ps.rnd == nil {
		conn.WriteError("no active round")
		return
	}
	unit, err := ps.state.UseHint(ps.rnd.NextUnit)
	if err != nil {
		conn.WriteError("hint unavailable")
		return
	}
	conn.Write(map[string]interface{}{
		"type": "hint",
		"unit": unit,
	})
}
