package transport

// Envelope is the wire shape of every outbound message: an event name paired
// with its payload, matching the Socket.IO emit(event, payload) shape the
// session coordinator was distilled from. Every outbound event in spec
// section 6 (waiting, start_game, state_pong, reset_game, end_game,
// end_lobby, game_error, server_error, creation_failed) is carried this way.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inboundEvent is the wire shape of a message read off a client socket. Kind
// is only meaningful for "create"/"join", and Params only for "create" (a
// join ignores it); Action only for "action". connect/disconnect are not
// carried this way at all — they are
// the websocket handshake and close, handled directly by the server's
// onCreate/onDestroy callbacks.
type inboundEvent struct {
	Event            string         `json:"event"`
	Kind             string         `json:"kind,omitempty"`
	Params           map[string]any `json:"params,omitempty"`
	CreateIfNotFound bool           `json:"create_if_not_found,omitempty"`
	Action           any            `json:"action,omitempty"`
}

const (
	eventCreate = "create"
	eventJoin   = "join"
	eventLeave  = "leave"
	eventAction = "action"

	eventWaiting        = "waiting"
	eventStartGame      = "start_game"
	eventStatePong      = "state_pong"
	eventResetGame      = "reset_game"
	eventEndGame        = "end_game"
	eventEndLobby       = "end_lobby"
	eventGameError      = "game_error"
	eventServerError    = "server_error"
	eventCreationFailed = "creation_failed"
)
