package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/latestcomment/educhat/internal/models"
)

// previewRunes is how much of each answer a transcript shows.
const previewRunes = 400

// ExportJSON renders the history exactly as it is stored on disk.
func ExportJSON(turns []models.Turn) ([]byte, error) {
	if turns == nil {
		turns = []models.Turn{}
	}
	return EncodeTurns(turns)
}

// Preview shortens text to at most n runes, marking the cut with "...".
func Preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

// WriteTranscript writes a plain-text transcript of turns to w.
func WriteTranscript(w io.Writer, sessionID string, turns []models.Turn) error {
	var b strings.Builder
	fmt.Fprintf(&b, "EduChat session %s\n", sessionID)
	fmt.Fprintf(&b, "%d turn(s)\n\n", len(turns))

	for i, t := range turns {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, t.Timestamp)
		fmt.Fprintf(&b, "Q: %s\n", t.Question)
		fmt.Fprintf(&b, "Bloom's level: %s\n", t.CognitiveLevel)
		if t.Answers != nil {
			for pair := t.Answers.Oldest(); pair != nil; pair = pair.Next() {
				fmt.Fprintf(&b, "  - %s: %s\n", pair.Key, Preview(pair.Value, previewRunes))
			}
		}
		best := t.Best()
		if best == "" {
			best = "none"
		}
		fmt.Fprintf(&b, "Best: %s\n", best)
		b.WriteString("---\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
