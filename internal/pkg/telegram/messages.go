package telegram

import "encoding/json"

// Telegram rejects messages longer than 4096 characters.
const maxMessageLen = 4096

// splitMessage chunks a long reply into sendable pieces, preferring to
// break on a newline and falling back to a hard cut. Runs on runes so a
// multi-byte character is never split in half.
func splitMessage(text string) []string {
	runes := []rune(text)
	if len(runes) <= maxMessageLen {
		return []string{text}
	}

	var parts []string
	for len(runes) > maxMessageLen {
		cut := maxMessageLen
		for i := maxMessageLen - 1; i > maxMessageLen/2; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// decodeList unpacks a JSON string-array column; a malformed value
// renders as empty rather than breaking the reply.
func decodeList(raw string) []string {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}
