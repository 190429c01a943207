package status

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// EndOfLog terminates every chunked log report. Receivers concatenate
// chunks until they see it.
const EndOfLog = "End of log."

// FormatLog renders the log report for a control-button press. The brief
// report carries the lock state; the full report adds the override level
// and the unlock history, most recent first.
func FormatLog(snap Snapshot, full bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", snap.Lock)
	if !full {
		return b.String()
	}

	override := "off"
	if snap.Override {
		override = "on"
	}
	fmt.Fprintf(&b, "Override: %s\n", override)
	fmt.Fprintf(&b, "Unlocks: %d\n", len(snap.History))
	for i, at := range snap.History {
		fmt.Fprintf(&b, "%d: %s\n", i+1, at.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// ChunkLog splits text into pieces of at most size bytes followed by the
// EndOfLog marker. Pieces prefer to end after a newline and never split a
// UTF-8 character, so concatenating them restores text exactly.
func ChunkLog(text string, size int) []string {
	var chunks []string
	for len(text) > 0 {
		if size <= 0 || len(text) <= size {
			chunks = append(chunks, text)
			break
		}

		split := size
		for split > 0 && !utf8.RuneStart(text[split]) {
			split--
		}
		if nl := strings.LastIndexByte(text[:split], '\n'); nl >= 0 {
			split = nl + 1
		}
		if split == 0 {
			// A single rune wider than size; emit it whole.
			_, w := utf8.DecodeRuneInString(text)
			split = w
		}

		chunks = append(chunks, text[:split])
		text = text[split:]
	}
	return append(chunks, EndOfLog)
}
