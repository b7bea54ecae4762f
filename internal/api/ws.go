package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/board"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/middleware"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// DefaultPongWait is how long a peer may stay silent to pings.
	DefaultPongWait = 60 * time.Second
)

// WSHandler streams live query snapshots and run boards over websockets.
type WSHandler struct {
	hooks    *live.Hooks
	guitars  repository.GuitarRepository
	mover    board.Mover
	access   access
	upgrader websocket.Upgrader
	pongWait time.Duration
	logger   *zap.Logger
}

// NewWSHandler builds the websocket handler. A zero pongWait means
// DefaultPongWait.
func NewWSHandler(hooks *live.Hooks, guitars repository.GuitarRepository, mover board.Mover, gate *auth.Gate, pongWait time.Duration, logger *zap.Logger) *WSHandler {
	if pongWait <= 0 {
		pongWait = DefaultPongWait
	}
	return &WSHandler{
		hooks:   hooks,
		guitars: guitars,
		mover:   mover,
		access:  access{gate: gate},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bearer token already authenticates the handshake.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pongWait: pongWait,
		logger:   logger,
	}
}

// wsConn serialises writes; snapshots arrive from several goroutines.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// keepAlive pings the peer until ctx ends and fails the next read once
// pongWait passes without a pong.
func (h *WSHandler) keepAlive(ctx context.Context, ws *wsConn) {
	conn := ws.conn
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go func() {
		ticker := time.NewTicker(h.pongWait * 9 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ws.ping(); err != nil {
					return
				}
			}
		}
	}()
}

type snapshotFrame struct {
	Hook  string `json:"hook"`
	Scope string `json:"scope"`
	Items any    `json:"items"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type boardFrame struct {
	Type  string      `json:"type"`
	State board.State `json:"state"`
}

type moveFrame struct {
	Type     string    `json:"type"`
	GuitarID uuid.UUID `json:"guitarId"`
	StageID  uuid.UUID `json:"stageId"`
}

// Subscribe handles GET /v1/ws/subscribe?hook=&scope=[&clientVisible=true].
// Every snapshot of the chosen hook is sent as one text frame.
func (h *WSHandler) Subscribe(c *gin.Context) {
	hook := c.Query("hook")
	scope := c.Query("scope")
	clientVisible := c.Query("clientVisible") == "true"
	if hook == live.HookRuns {
		scope = live.RunsScope
	}

	if err := h.authorizeHook(c, hook, scope, clientVisible); err != nil {
		respondError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	ws := &wsConn{conn: conn}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	h.keepAlive(ctx, ws)

	onError := live.WithErrorHandler(func(err error) {
		h.logger.Warn("snapshot failed", zap.String("hook", hook), zap.String("scope", scope), zap.Error(err))
		_ = ws.send(errorFrame{Type: "error", Message: "snapshot failed"})
	})
	sub := h.open(ctx, ws, hook, scope, clientVisible, onError)
	defer sub.Unsubscribe()

	drain(conn)
}

func (h *WSHandler) open(ctx context.Context, ws *wsConn, hook, scope string, clientVisible bool, opt live.Option) *live.Subscription {
	switch hook {
	case live.HookRuns:
		return stream(ctx, ws, h.hooks.Runs, scope, opt)
	case live.HookRunStages:
		return stream(ctx, ws, h.hooks.RunStages, scope, opt)
	case live.HookRunGuitars:
		return stream(ctx, ws, h.hooks.RunGuitars, scope, opt)
	case live.HookClientGuitars:
		return stream(ctx, ws, h.hooks.ClientGuitars, scope, opt)
	case live.HookClientInvoices:
		return stream(ctx, ws, h.hooks.ClientInvoices, scope, opt)
	case live.HookClientNotifications:
		return stream(ctx, ws, h.hooks.ClientNotifications, scope, opt)
	default: // live.HookGuitarNotes, checked by authorizeHook
		return h.hooks.SubscribeGuitarNotes(ctx, scope, clientVisible, func(items []models.Note) {
			_ = ws.send(snapshotFrame{Hook: hook, Scope: scope, Items: items})
		}, opt)
	}
}

func stream[T any](ctx context.Context, ws *wsConn, hook *live.Hook[T], scope string, opt live.Option) *live.Subscription {
	return hook.Subscribe(ctx, scope, func(items []T) {
		_ = ws.send(snapshotFrame{Hook: hook.Name, Scope: scope, Items: items})
	}, opt)
}

// authorizeHook decides who may watch what. Run-wide hooks are for
// StaffRoles. Client hooks are for the client themselves, and invoices
// and guitars additionally for ClientRecordRoles. Notes are open to
// staff, and to the guitar's owner with clientVisible set.
func (h *WSHandler) authorizeHook(c *gin.Context, hook, scope string, clientVisible bool) error {
	caller := middleware.GetUserID(c)
	ctx := c.Request.Context()

	switch hook {
	case live.HookRuns, live.HookRunStages, live.HookRunGuitars:
		_, err := h.access.gate.Authorize(ctx, caller, auth.StaffRoles)
		return err
	case live.HookClientGuitars, live.HookClientInvoices:
		return h.access.selfOr(c, scopeUID(scope), auth.ClientRecordRoles)
	case live.HookClientNotifications:
		if caller == uuid.Nil {
			return apperr.Unauthenticated("authentication required")
		}
		if scopeUID(scope) != caller {
			return apperr.PermissionDenied("notifications are only visible to their recipient")
		}
		return nil
	case live.HookGuitarNotes:
		id, err := uuid.Parse(scope)
		if err != nil {
			// Nothing can match; only staff get the empty stream.
			_, err := h.access.gate.Authorize(ctx, caller, auth.StaffRoles)
			return err
		}
		g, err := h.guitars.GetByID(ctx, id)
		if err != nil {
			return apperr.Internal("failed to load guitar", err)
		}
		if g == nil {
			return apperr.NotFound("guitar not found")
		}
		staff, err := h.access.guitar(c, g)
		if err != nil {
			return err
		}
		if !staff && !clientVisible {
			return apperr.PermissionDenied("clients may only follow client-visible notes")
		}
		return nil
	default:
		return apperr.InvalidArgument("unknown hook")
	}
}

// scopeUID parses a client scope. An unparsable scope belongs to nobody.
func scopeUID(scope string) uuid.UUID {
	id, err := uuid.Parse(scope)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// drain reads until the peer goes away. Subscribe streams are one-way,
// so anything the client sends is discarded.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// Board handles GET /v1/ws/board/:runID (StaffRoles). The server pushes
// the board after every change and accepts move frames. A move shows up
// at once and is rolled back with an error frame when the durable write
// fails.
func (h *WSHandler) Board(c *gin.Context) {
	runID, ok := parseID(c, "runID", "run")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	ws := &wsConn{conn: conn}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	session, err := board.Open(ctx, h.hooks, board.NewStore(), h.mover, runID,
		func(st board.State) {
			_ = ws.send(boardFrame{Type: "board", State: st})
		},
		func(err error) {
			h.logger.Warn("board snapshot failed", zap.String("run_id", runID.String()), zap.Error(err))
			_ = ws.send(errorFrame{Type: "error", Message: "board refresh failed"})
		},
	)
	if err != nil {
		h.logger.Error("failed to open board", zap.String("run_id", runID.String()), zap.Error(err))
		_ = ws.send(errorFrame{Type: "error", Message: "failed to open board"})
		return
	}
	defer session.Close()
	h.keepAlive(ctx, ws)

	for {
		var frame moveFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("board connection closed", zap.Error(err))
			}
			return
		}
		if frame.Type != "move" {
			_ = ws.send(errorFrame{Type: "error", Message: "unknown frame type"})
			continue
		}
		if err := session.Move(ctx, frame.GuitarID, frame.StageID); err != nil {
			_ = ws.send(errorFrame{Type: "error", Message: moveError(err)})
		}
	}
}

func moveError(err error) string {
	if errors.Is(err, board.ErrGuitarNotOnBoard) {
		return err.Error()
	}
	return apperr.Message(err)
}
