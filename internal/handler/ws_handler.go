package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	ws "github.com/stemsi/exstem-quiz/internal/websocket"
)

const tickInterval = time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live quiz session: client actions in, state, countdown
// ticks and the completion report out.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes; gorilla allows a single concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

func (w *wsConn) sendError(msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteError(w.conn, msg)
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream?token=
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	// Reject before upgrading so the client gets a proper HTTP status.
	view, err := h.sessions.Get(sessionID)
	if err != nil {
		failSession(c, err)
		return
	}
	events, unsubscribe, err := h.sessions.Subscribe(sessionID)
	if err != nil {
		failSession(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Client connected")

	out := &wsConn{conn: conn}
	if err := out.send(ws.StateResponse{Event: ws.EventState, Session: view}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pushLoop(ctx, out, sessionID, view.Timed, events)
	}()

	h.readLoop(out, wsLog, sessionID)
	cancel()
	wg.Wait()
}

// pushLoop forwards countdown ticks and session events until ctx ends or the
// session goes away.
func (h *WSHandler) pushLoop(ctx context.Context, out *wsConn, id uuid.UUID, timed bool, events <-chan service.SessionEvent) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = out.sendError("session closed")
				_ = out.conn.Close()
				return
			}
			if ev.Type == service.EventCompleted {
				_ = out.send(ws.CompletedResponse{Event: ws.EventCompleted, Report: ev.Report})
			}
		case <-ticker.C:
			if !timed {
				continue
			}
			secs, inProgress, err := h.sessions.SecondsRemaining(id)
			if err != nil || !inProgress {
				continue
			}
			if err := out.send(ws.TickResponse{Event: ws.EventTick, SecondsRemaining: secs}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(out *wsConn, wsLog zerolog.Logger, id uuid.UUID) {
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(out.conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if msg.Action == ws.ActionPing {
			_ = out.send(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		view, err := h.dispatch(id, &msg)
		if err != nil {
			_ = out.sendError(err.Error())
			if errors.Is(err, service.ErrSessionNotFound) {
				return
			}
			continue
		}
		if err := out.send(ws.StateResponse{Event: ws.EventState, Session: view}); err != nil {
			return
		}
	}
}

func (h *WSHandler) dispatch(id uuid.UUID, msg *ws.RequestPayload) (model.SessionView, error) {
	switch msg.Action {
	case ws.ActionAnswer:
		if msg.Option == nil {
			return model.SessionView{}, fieldError("option_index")
		}
		return h.sessions.Answer(id, *msg.Option)
	case ws.ActionNext:
		return h.sessions.Next(id)
	case ws.ActionPrevious:
		return h.sessions.Previous(id)
	case ws.ActionGoTo:
		if msg.Position == nil {
			return model.SessionView{}, fieldError("position")
		}
		return h.sessions.GoTo(id, *msg.Position)
	case ws.ActionFlag:
		return h.sessions.ToggleFlag(id, msg.Position)
	case ws.ActionComplete:
		return h.sessions.Complete(id)
	default:
		return model.SessionView{}, errors.New("unknown action: " + string(msg.Action))
	}
}

func fieldError(name string) error {
	return fmt.Errorf("%s is required", name)
}
