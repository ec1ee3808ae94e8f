package services

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/latestcomment/educhat/internal/metrics"
)

const (
	NotClassified        = "Not Classified"
	NotClassifiedMissing = "Not Classified (tagger unavailable)"
)

// Level is one cognitive category and the verbs that signal it.
type Level struct {
	Name  string
	Verbs []string
}

// BloomLevels is ordered from the least to the most demanding category.
var BloomLevels = []Level{
	{Name: "Knowledge", Verbs: []string{"define", "list", "name", "recall", "identify", "label", "state"}},
	{Name: "Comprehension", Verbs: []string{"describe", "explain", "summarize", "paraphrase", "classify", "discuss"}},
	{Name: "Application", Verbs: []string{"apply", "demonstrate", "solve", "use", "illustrate", "show"}},
	{Name: "Analysis", Verbs: []string{"analyze", "compare", "contrast", "differentiate", "examine", "categorize"}},
	{Name: "Synthesis", Verbs: []string{"create", "design", "develop", "construct", "compose", "formulate"}},
	{Name: "Evaluation", Verbs: []string{"evaluate", "judge", "critique", "assess", "justify", "appraise"}},
}

// TaggedToken is a word and its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string
	Tag  string
}

type Tagger interface {
	Tag(text string) ([]TaggedToken, error)
}

// ProseTagger tags text with prose's averaged perceptron model. prose
// loads the model for every document, so each call costs a few hundred
// milliseconds. The model was trained on running text and often tags a
// sentence-initial imperative as a noun or adjective ("explain" as JJ,
// "compare" and "list" as NN); such questions come back NotClassified.
type ProseTagger struct{}

func (ProseTagger) Tag(text string) ([]TaggedToken, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tag text: %w", err)
	}
	toks := doc.Tokens()
	out := make([]TaggedToken, len(toks))
	for i, tok := range toks {
		out[i] = TaggedToken{Text: tok.Text, Tag: tok.Tag}
	}
	return out, nil
}

type Classifier struct {
	tagger Tagger
	levels []Level
}

// NewClassifier builds a classifier over BloomLevels. A nil tagger is
// allowed; every question then classifies as NotClassifiedMissing.
func NewClassifier(tagger Tagger) *Classifier {
	return &Classifier{tagger: tagger, levels: BloomLevels}
}

// verbs returns the lower-cased tokens tagged as any verb form.
func (c *Classifier) verbs(text string) ([]string, error) {
	tagged, err := c.tagger.Tag(strings.ToLower(text))
	if err != nil {
		return nil, err
	}
	var verbs []string
	for _, tok := range tagged {
		if strings.HasPrefix(tok.Tag, "VB") {
			verbs = append(verbs, tok.Text)
		}
	}
	return verbs, nil
}

// Breakdown counts verb matches per level. A verb listed under several
// levels counts toward each of them.
func (c *Classifier) Breakdown(text string) (map[string]int, error) {
	if c.tagger == nil {
		return nil, fmt.Errorf("no part-of-speech tagger configured")
	}
	verbs, err := c.verbs(text)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, level := range c.levels {
		for _, verb := range verbs {
			for _, v := range level.Verbs {
				if v == verb {
					counts[level.Name]++
				}
			}
		}
	}
	return counts, nil
}

// Classify returns the level with the most verb matches. Ties go to the
// level listed first in BloomLevels.
func (c *Classifier) Classify(text string) string {
	counts, err := c.Breakdown(text)
	if err != nil {
		metrics.Classifications.WithLabelValues(NotClassifiedMissing).Inc()
		return NotClassifiedMissing
	}

	label, best := NotClassified, 0
	for _, level := range c.levels {
		if n := counts[level.Name]; n > best {
			label, best = level.Name, n
		}
	}
	metrics.Classifications.WithLabelValues(label).Inc()
	return label
}
