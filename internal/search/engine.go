// Package search ranks tasks against free-text queries using a bounded
// keyword heuristic over an in-memory corpus. It backs both ad-hoc
// "what's due" queries and related-document correlation.
package search

import (
	"sort"
	"strings"

	"github.com/nhle/task-alerts/internal/model"
)

// DefaultMinScore drops items whose only evidence is a single weak
// substring hit; any title or attachment hit clears it.
const DefaultMinScore = 4

// Scoring weights.
const (
	scorePhraseTitle      = 100
	scoreTitleWordMulti   = 10
	scoreTitleWordSingle  = 3
	scorePhraseAttachment = 5
	scoreAttachmentWord   = 2
	scorePhraseUpdate     = 3
	scoreUpdateWord       = 1
	scoreFieldWord        = 1
)

// stopWords are filtered out of queries before keyword matching. Short
// acronyms are deliberately kept.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true, "nor": true, "so": true,
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "it": true, "its": true,
	"he": true, "she": true, "they": true, "them": true,
	"this": true, "that": true, "these": true, "those": true,
	"is": true, "am": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
	"do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true,
	"will": true, "would": true, "can": true, "could": true,
	"should": true, "shall": true, "may": true, "might": true,
	"of": true, "to": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "with": true, "about": true, "from": true,
	"what": true, "which": true, "who": true, "whose": true,
	"when": true, "where": true, "how": true,
}

// Result pairs a task with its relevance score.
type Result struct {
	Task  model.Task
	Score int
}

// Engine scores and ranks tasks for free-text queries.
type Engine struct {
	minScore int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMinScore overrides the minimum survival score.
func WithMinScore(min int) Option {
	return func(e *Engine) { e.minScore = min }
}

// NewEngine creates a relevance engine with the default threshold.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{minScore: DefaultMinScore}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tokenize splits a query into lowercase keywords with stop words
// removed. All other tokens are preserved, including short acronyms.
func Tokenize(query string) []string {
	fields := strings.Fields(normalize(query))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		keywords = append(keywords, f)
	}
	return keywords
}

// Search scores every task against the query, drops non-candidates and
// low scorers, and returns survivors sorted descending by score.
func (e *Engine) Search(query string, tasks []model.Task) []Result {
	phrase := normalize(query)
	keywords := Tokenize(query)
	if phrase == "" || len(keywords) == 0 {
		return nil
	}

	var results []Result
	for _, task := range tasks {
		doc := newDocument(task)
		if !doc.isCandidate(phrase, keywords) {
			continue
		}
		score := doc.score(phrase, keywords)
		if score < e.minScore {
			continue
		}
		results = append(results, Result{Task: task, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// document is a task's searchable text, pre-normalized once per task.
type document struct {
	title       string
	attachments []string
	updates     []string
	fields      []string
	combined    string
}

func newDocument(task model.Task) *document {
	d := &document{title: normalize(task.Name)}

	for _, a := range task.Attachments {
		d.attachments = append(d.attachments, normalize(a.Name))
	}
	for _, u := range task.Updates {
		d.updates = append(d.updates, normalize(u))
	}
	for _, cv := range task.ColumnValues {
		if cv.Text != "" {
			d.fields = append(d.fields, normalize(cv.Text))
		}
		if cv.Title != "" {
			d.fields = append(d.fields, normalize(cv.Title))
		}
	}

	var b strings.Builder
	b.WriteString(d.title)
	for _, s := range d.attachments {
		b.WriteByte(' ')
		b.WriteString(s)
	}
	for _, s := range d.updates {
		b.WriteByte(' ')
		b.WriteString(s)
	}
	for _, s := range d.fields {
		b.WriteByte(' ')
		b.WriteString(s)
	}
	d.combined = b.String()

	return d
}

// isCandidate applies the two-mode gate: multi-keyword queries require
// the verbatim phrase somewhere or every keyword as a whole word in the
// combined text (conjunctive); single-keyword queries accept a whole-word
// hit in any field (disjunctive).
func (d *document) isCandidate(phrase string, keywords []string) bool {
	if len(keywords) >= 2 {
		if containsPhrase(d.combined, phrase) {
			return true
		}
		for _, kw := range keywords {
			if !containsWord(d.combined, kw) {
				return false
			}
		}
		return true
	}
	return containsWord(d.combined, keywords[0])
}

// score sums the weighted signals for one task.
func (d *document) score(phrase string, keywords []string) int {
	score := 0

	// Verbatim phrase in the title, or in an attachment name, is the
	// strongest signal.
	if containsPhrase(d.title, phrase) || anyPhrase(d.attachments, phrase) {
		score += scorePhraseTitle
	}

	titleWords := 0
	for _, kw := range keywords {
		if containsWord(d.title, kw) {
			titleWords++
		}
	}
	switch {
	case titleWords >= 2:
		score += scoreTitleWordMulti * titleWords
	case titleWords == 1:
		score += scoreTitleWordSingle
	}

	if anyPhrase(d.attachments, phrase) {
		score += scorePhraseAttachment
	}
	for _, kw := range keywords {
		if anyContains(d.attachments, kw) {
			score += scoreAttachmentWord
		}
	}

	if anyPhrase(d.updates, phrase) {
		score += scorePhraseUpdate
	}
	for _, kw := range keywords {
		if anyContains(d.updates, kw) {
			score += scoreUpdateWord
		}
	}

	for _, kw := range keywords {
		if anyContains(d.fields, kw) {
			score += scoreFieldWord
		}
	}

	return score
}

// normalize lowercases s and replaces every non-alphanumeric run with a
// single space, so hyphenated and punctuated names match phrase queries.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// containsPhrase reports a word-boundary-anchored occurrence of the
// normalized phrase inside normalized text.
func containsPhrase(text, phrase string) bool {
	if text == "" || phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// containsWord reports a whole-word occurrence, excluding substring-only
// hits.
func containsWord(text, word string) bool {
	return containsPhrase(text, word)
}

// anyPhrase reports whether any text contains the phrase on boundaries.
func anyPhrase(texts []string, phrase string) bool {
	for _, t := range texts {
		if containsPhrase(t, phrase) {
			return true
		}
	}
	return false
}

// anyContains reports whether any text contains the keyword as a plain
// substring.
func anyContains(texts []string, keyword string) bool {
	for _, t := range texts {
		if strings.Contains(t, keyword) {
			return true
		}
	}
	return false
}
