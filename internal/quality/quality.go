// Package quality scores proposed work items for clarity, actionability,
// scope, and label validity before they are considered for acceptance.
//
// Scoring is heuristic and total: any well-formed input (including empty
// strings) yields a score, never an error. The scorer holds no mutable state
// and is safe for concurrent use.
package quality

import (
	"fmt"
	"strings"
)

// Sub-score weights for the overall quality score.
const (
	clarityWeight       = 0.35
	actionabilityWeight = 0.35
	scopeWeight         = 0.20
	labelValidityWeight = 0.10
)

// DefaultMinScore is the default overall score an item must reach to pass
// the quality gate.
const DefaultMinScore = 0.5

// Result holds the quality assessment of a single proposed item.
// All scores are in [0, 1].
type Result struct {
	Clarity       float64  `json:"clarity"`
	Actionability float64  `json:"actionability"`
	Scope         float64  `json:"scope"`
	LabelValidity float64  `json:"label_validity"`
	Overall       float64  `json:"overall"`
	PassesGate    bool     `json:"passes_gate"`
	Feedback      []string `json:"feedback"`
}

// Config holds quality scorer configuration
type Config struct {
	// MinScore is the overall score required to pass the gate.
	// Default: 0.5
	MinScore float64
}

// DefaultConfig returns the default quality scorer configuration
func DefaultConfig() Config {
	return Config{MinScore: DefaultMinScore}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MinScore < 0.0 || c.MinScore > 1.0 {
		return fmt.Errorf("min_score must be between 0.0 and 1.0 (got %.2f)", c.MinScore)
	}
	return nil
}

// Scorer assesses proposed items against the quality heuristics
type Scorer struct {
	config Config
}

// NewScorer creates a quality scorer with the given configuration
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Scorer{config: cfg}, nil
}

// technicalKeywords signal that a body grounds the work in a concrete domain.
var technicalKeywords = []string{
	"api", "endpoint", "database", "query", "schema", "migration",
	"cache", "config", "test", "handler", "middleware", "timeout",
	"error", "log", "deploy", "build", "memory", "goroutine", "race",
	"lock", "index", "token", "auth", "session", "parse", "encode",
}

// actionVerbs signal an actionable title.
var actionVerbs = []string{
	"add", "fix", "remove", "update", "refactor", "implement",
	"migrate", "upgrade", "replace", "extract", "improve", "document",
	"optimize", "validate", "handle", "support", "prevent", "enforce",
}

// hedgingWords in a body suggest the author has not verified the problem.
var hedgingWords = []string{
	"maybe", "possibly", "perhaps", "might be", "not sure",
	"could be", "i think", "probably", "somehow",
}

// broadScopePhrases suggest unscoped work that cannot land as one change.
var broadScopePhrases = []string{
	"everything", "complete rewrite", "rewrite everything", "all of the",
	"entire codebase", "from scratch", "overhaul", "all files",
}

// recognizedLabels is the label vocabulary the generator is expected to use.
var recognizedLabels = map[string]struct{}{
	"bug": {}, "feature": {}, "enhancement": {}, "security": {},
	"performance": {}, "test": {}, "testing": {}, "documentation": {},
	"docs": {}, "refactor": {}, "ci/cd": {}, "ci": {}, "cleanup": {},
	"tech-debt": {}, "good-first-issue": {},
}

// Score assesses one proposed item. Each sub-score starts from a fixed base
// and moves by additive bonuses and penalties, clamped to [0, 1]. Feedback
// carries one remediation line per weak sub-score.
func (s *Scorer) Score(title, body string, labels []string) Result {
	titleTrim := strings.TrimSpace(title)
	bodyTrim := strings.TrimSpace(body)
	titleLower := strings.ToLower(titleTrim)
	bodyLower := strings.ToLower(bodyTrim)

	clarity := s.scoreClarity(titleTrim, bodyTrim, bodyLower)
	actionability := s.scoreActionability(titleLower, bodyLower)
	scope := s.scoreScope(titleLower, bodyLower)
	labelValidity := s.scoreLabels(labels)

	overall := clarityWeight*clarity +
		actionabilityWeight*actionability +
		scopeWeight*scope +
		labelValidityWeight*labelValidity

	result := Result{
		Clarity:       clarity,
		Actionability: actionability,
		Scope:         scope,
		LabelValidity: labelValidity,
		Overall:       overall,
		PassesGate:    overall >= s.config.MinScore,
	}
	result.Feedback = s.feedback(result)

	return result
}

// scoreClarity rewards descriptive titles and substantial bodies.
func (s *Scorer) scoreClarity(title, body, bodyLower string) float64 {
	score := 0.5

	titleLen := len(title)
	switch {
	case titleLen >= 30 && titleLen <= 80:
		score += 0.2
	case titleLen < 15:
		score -= 0.2
	}

	bodyLen := len(body)
	switch {
	case bodyLen >= 100 && bodyLen <= 500:
		score += 0.2
	case bodyLen < 50:
		score -= 0.2
	}

	if containsAny(bodyLower, hedgingWords) {
		score -= 0.15
	}

	return clamp(score)
}

// scoreActionability rewards action-verb titles and technically grounded bodies.
func (s *Scorer) scoreActionability(titleLower, bodyLower string) float64 {
	score := 0.5

	for _, verb := range actionVerbs {
		if strings.HasPrefix(titleLower, verb+" ") || strings.Contains(titleLower, " "+verb+" ") {
			score += 0.2
			break
		}
	}

	hits := 0
	for _, kw := range technicalKeywords {
		if strings.Contains(bodyLower, kw) {
			hits++
		}
	}
	if hits > 0 {
		score += 0.1
	}
	if hits >= 3 {
		score += 0.1
	}

	return clamp(score)
}

// scoreScope penalizes work described too broadly to land as one change.
func (s *Scorer) scoreScope(titleLower, bodyLower string) float64 {
	score := 0.7

	if containsAny(titleLower, broadScopePhrases) {
		score -= 0.3
	}
	if containsAny(bodyLower, broadScopePhrases) {
		score -= 0.2
	}

	return clamp(score)
}

// scoreLabels rewards labels drawn from the recognized vocabulary,
// proportional to how many are recognized.
func (s *Scorer) scoreLabels(labels []string) float64 {
	if len(labels) == 0 {
		return 0.3
	}

	recognized := 0
	for _, label := range labels {
		if _, ok := recognizedLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
			recognized++
		}
	}
	if recognized == 0 {
		return 0.2
	}

	return clamp(0.5 + 0.25*float64(recognized))
}

// feedback produces one remediation line per sub-score below 0.5.
func (s *Scorer) feedback(r Result) []string {
	var lines []string

	if r.Clarity < 0.5 {
		lines = append(lines, "clarity: expand the title and body; describe the observed problem concretely")
	}
	if r.Actionability < 0.5 {
		lines = append(lines, "actionability: lead the title with an action verb and reference the affected component")
	}
	if r.Scope < 0.5 {
		lines = append(lines, "scope: narrow the work to a single change; avoid rewrite-everything framing")
	}
	if r.LabelValidity < 0.5 {
		lines = append(lines, "labels: use labels from the recognized vocabulary (bug, feature, security, ...)")
	}

	if len(lines) == 0 {
		lines = []string{"quality looks good"}
	}

	return lines
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
