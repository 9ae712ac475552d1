// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session handler. These provide
// more specific reasons for closure than standard codes.
const (
	BadSubprotocolError     = 3000 // Client connected with an unsupported subprotocol.
	InvalidOwnerTokenError  = 3001 // Provided owner token was invalid or for another session.
	InvalidParticipantError = 3002 // Participant id in the WS URL is unknown to the session.
	InvalidSessionCodeError = 3003 // Session code specified in the WS URL does not exist.
)
