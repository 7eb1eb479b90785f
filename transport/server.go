// Package transport adapts the Session Coordinator onto the network: a
// WebSocket endpoint carrying the six inbound / nine outbound events from
// spec section 6, plus health, stats, and debug HTTP endpoints. It is
// grounded on the teacher's websocket/websocket.go (Client/Manager,
// unmodified) and server/server.go + server/middleware.go (route layout,
// CORS, session identity), adapted from one global broadcaster to
// per-room broadcast membership (rooms.go) since this domain runs many
// concurrent rooms instead of sticks' single matchmaking queue.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tkahng/gamecore/auth"
	"github.com/tkahng/gamecore/coordinator"
	"github.com/tkahng/gamecore/game"
	"github.com/tkahng/gamecore/websocket"

	gws "github.com/gorilla/websocket"
)

const pingInterval = 20 * time.Second

// Server wires the coordinator, the WebSocket endpoint, and the auxiliary
// HTTP endpoints together behind one http.Handler.
type Server struct {
	coord *coordinator.Coordinator
	hub   *RoomHub
	conns websocket.Manager

	upgrader      gws.Upgrader
	authenticator auth.Authenticator
	logger        *slog.Logger
	metricsHandler http.Handler

	mux *http.ServeMux
}

// NewServer builds a Server. coord may be nil at construction time and
// supplied afterward via SetCoordinator: the coordinator itself needs this
// Server's RoomBroadcaster to be constructed first, so cmd/gameserver wires
// them in two steps. metricsHandler may be nil to omit /metrics.
func NewServer(coord *coordinator.Coordinator, authenticator auth.Authenticator, origins []string, logger *slog.Logger, metricsHandler http.Handler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if authenticator == nil {
		authenticator = auth.NoopAuthenticator{}
	}
	s := &Server{
		coord:          coord,
		hub:            NewRoomHub(),
		conns:          websocket.NewManager(),
		upgrader:       websocket.DefaultUpgrader(origins),
		authenticator:  authenticator,
		logger:         logger,
		metricsHandler: metricsHandler,
		mux:            http.NewServeMux(),
	}
	s.setupRoutes(origins)
	go s.conns.Run(context.Background())
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// RoomBroadcaster exposes this Server's RoomHub as a coordinator.Broadcaster,
// for wiring into coordinator.New.
func (s *Server) RoomBroadcaster() coordinator.Broadcaster {
	return s.hub
}

// SetCoordinator completes the two-step wiring NewServer's doc comment
// describes. It must be called before the server starts accepting
// connections.
func (s *Server) SetCoordinator(coord *coordinator.Coordinator) {
	s.coord = coord
}

func (s *Server) setupRoutes(origins []string) {
	withCommon := func(h http.HandlerFunc) http.Handler {
		return cors(origins)(identify(s.authenticator)(h))
	}
	s.mux.Handle("/ws", withCommon(s.handleWebSocket))
	s.mux.Handle("/api/health", cors(origins)(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/api/stats", cors(origins)(http.HandlerFunc(s.handleStats)))
	s.mux.Handle("/debug", cors(origins)(http.HandlerFunc(s.handleDebug)))
	if s.metricsHandler != nil {
		s.mux.Handle("/metrics", s.metricsHandler)
	}
}

// handleWebSocket upgrades the connection, registers it with the
// server-wide connection Manager, binds it to the caller's identity in the
// RoomHub, and starts its read/write loops. It does not call
// websocket.ServeWS directly: ServeWS's onCreate/onDestroy callbacks carry
// only the Client, not the *http.Request the session identity was resolved
// from, so the upgrade sequence is inlined here with userID captured by
// closure instead.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "missing session identity", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	websocket.DefaultSetupConn(conn)
	client := websocket.NewClient(conn)

	if err := s.coord.Connect(userID); err != nil {
		s.logger.Error("connect failed", "user", userID, "err", err)
	}
	s.hub.Bind(client, userID)

	ctx, cancel := context.WithCancel(context.Background())
	s.conns.RegisterClient(ctx, cancel, client)

	onDestroy := func(c websocket.Client) {
		s.conns.UnregisterClient(c)
		s.hub.Unbind(c)
		if err := s.coord.Disconnect(userID); err != nil {
			s.logger.Error("disconnect failed", "user", userID, "err", err)
		}
	}

	go client.WriteForever(ctx, onDestroy, pingInterval)
	go client.ReadForever(ctx, onDestroy, s.handleMessage)
}

// handleMessage dispatches one inbound event under the user's lock,
// mirroring app.py's `with USERS[user_id]:` wrapper around each socket
// handler. create/join additionally seat the caller's RoomHub membership
// into whatever room the coordinator assigned once the call succeeds.
func (s *Server) handleMessage(c websocket.Client, raw []byte) {
	userID, ok := s.hub.UserOf(c)
	if !ok {
		return
	}

	var in inboundEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		s.emit(c, eventServerError, "malformed message")
		return
	}

	err := s.coord.WithUserLock(userID, func() error {
		switch in.Event {
		case eventCreate:
			if err := s.coord.Create(userID, in.Kind, in.Params); err != nil {
				return err
			}
			return s.followAssignedRoom(userID)
		case eventJoin:
			if err := s.coord.Join(userID, in.Kind, in.CreateIfNotFound); err != nil {
				return err
			}
			if _, ok := s.coord.RoomOf(userID); !ok {
				return nil
			}
			return s.followAssignedRoom(userID)
		case eventLeave:
			if err := s.coord.Leave(userID); err != nil {
				return err
			}
			s.hub.Leave(userID)
			return nil
		case eventAction:
			return s.coord.Action(userID, in.Action)
		default:
			return game.NewValidationError(unknownEventError(in.Event))
		}
	})
	if err != nil {
		s.emit(c, errorEventFor(in.Event, err), err.Error())
	}
}

func (s *Server) followAssignedRoom(userID string) error {
	roomID, ok := s.coord.RoomOf(userID)
	if !ok {
		return game.NewConsistencyError(unknownEventError("no room assigned after create/join"))
	}
	s.hub.Join(roomID, userID)
	return nil
}

func (s *Server) emit(c websocket.Client, event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}
	_, _ = c.Write(data)
}

func errorEventFor(event string, err error) string {
	var gameErr *game.Error
	if as, ok := err.(*game.Error); ok {
		gameErr = as
	}
	if gameErr != nil && gameErr.Kind == game.KindGame {
		return eventGameError
	}
	if event == eventCreate {
		return eventCreationFailed
	}
	return eventServerError
}

type unknownEventError string

func (e unknownEventError) Error() string { return "unknown event: " + string(e) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.DebugSnapshot()
	writeJSON(w, map[string]any{
		"active_games": snap["active_games"],
		"total_games":  len(snap["all_games"].([]int)),
		"connections":  len(s.conns.Clients()),
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.coord.DebugSnapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
