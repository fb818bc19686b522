package wire

import "fmt"

// Error codes surfaced to clients. These are wire-level identifiers, kept
// stable across releases.
const (
	CodeAuthInvalid            = "AUTH_INVALID"
	CodeRateLimited            = "RATE_LIMITED"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeNpcNotFound            = "NPC_NOT_FOUND"
	CodeMultipleCombatSessions = "MULTIPLE_COMBAT_SESSIONS"
	CodeBoxNotFound            = "BOX_NOT_FOUND"
	CodeBoxExpired             = "BOX_EXPIRED"
	CodeBoxExclusive           = "BOX_EXCLUSIVE"
	CodeBoxBusy                = "BOX_BUSY"
	CodeBoxTooFar              = "BOX_TOO_FAR"
	CodeInvalidPlayerPosition  = "INVALID_PLAYER_POSITION"
	CodeDBTransient            = "DB_TRANSIENT"
	CodeInternal               = "INTERNAL"
)

// Error carries a wire error code plus a human-readable message. Handlers
// return it to have the router send an error frame instead of crashing the
// tick.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a coded wire error.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
