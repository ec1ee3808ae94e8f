package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Answers maps model identifier to response text in the order the models
// were queried.
type Answers = orderedmap.OrderedMap[string, string]

// NewAnswers returns an empty Answers map.
func NewAnswers() *Answers {
	return orderedmap.New[string, string]()
}

// Turn is one question/answer exchange. The JSON keys match the session files
// written by earlier EduChat deployments so those sessions stay resumable.
type Turn struct {
	Timestamp      string   `json:"timestamp"`
	Question       string   `json:"question"`
	CognitiveLevel string   `json:"bloom"`
	Answers        *Answers `json:"answers"`
	SelectedBest   *string  `json:"selected_best"`
}

// Models returns the answered model identifiers in query order.
func (t Turn) Models() []string {
	if t.Answers == nil {
		return nil
	}
	out := make([]string, 0, t.Answers.Len())
	for pair := t.Answers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Best returns the selected model or "" when none was chosen.
func (t Turn) Best() string {
	if t.SelectedBest == nil {
		return ""
	}
	return *t.SelectedBest
}
