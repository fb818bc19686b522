package wire

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ValidatePlayerID checks an inbound playerId field against the session's
// identity. Clients historically sent either the numeric row id or the user
// UUID, sometimes as a string; the coercing comparison lives only here.
// Valid iff the value numerically equals playerDbId, or exactly equals
// userId.
func ValidatePlayerID(received json.RawMessage, playerDbID int64, userID string) bool {
	if len(received) == 0 {
		return false
	}
	var asNum json.Number
	if err := json.Unmarshal(received, &asNum); err == nil {
		if n, err := asNum.Int64(); err == nil {
			return n == playerDbID
		}
	}
	var asStr string
	if err := json.Unmarshal(received, &asStr); err == nil {
		if asStr == userID {
			return true
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(asStr), 10, 64); err == nil {
			return n == playerDbID
		}
	}
	return false
}

// ValidateClientID is strict equality against the server-assigned clientId.
func ValidateClientID(received, clientID string) bool {
	return received != "" && received == clientID
}

// FinitePosition rejects NaN/Inf coordinates before they enter the
// simulation.
func FinitePosition(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
