package handler

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starfall/server/internal/wire"
	"golang.org/x/text/unicode/norm"
)

const maxChatLength = 200

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// maskedWords is the minimal built-in filter; deployments extend it via
// moderation tooling upstream of the game server.
var maskedWords = []string{
	"noob", "idiot", "stupid",
}

// Chat sanitizes and broadcasts a chat line to the whole map.
func Chat(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		_, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed chat_message")
		}
		content, ok := SanitizeChat(msg.Content)
		if !ok {
			return wire.Errorf(wire.CodeValidationFailed, "empty or oversized message")
		}
		deps.Env.Bc.ToMap(run.Map, &wire.ChatBroadcast{
			Type:     wire.TypeChatMessage,
			ClientID: p.ClientID,
			Nickname: p.Nickname,
			Content:  content,
		}, "")
		return nil
	}
}

// SanitizeChat normalizes, strips markup and masks filtered words. Returns
// false when nothing sendable remains.
func SanitizeChat(content string) (string, bool) {
	content = norm.NFKC.String(content)
	content = htmlTagPattern.ReplaceAllString(content, "")
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxChatLength {
		return "", false
	}
	// Match case-insensitively but mask the original runes. Lowercasing per
	// rune keeps both slices index-aligned even where the byte width changes.
	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	for _, w := range maskedWords {
		wr := []rune(w)
		for i := 0; i+len(wr) <= len(runes); {
			if !runesEqual(lower[i:i+len(wr)], wr) {
				i++
				continue
			}
			for j := range wr {
				runes[i+j] = '*'
				lower[i+j] = '*'
			}
			i += len(wr)
		}
	}
	return string(runes), true
}

func runesEqual(a, b []rune) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
