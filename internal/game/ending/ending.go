// Package ending selects the ending a finished playthrough earns.
//
// Selection is a pure function of the player's final state and the rule set:
// rules are tried in ascending priority and the first whose thresholds all
// hold wins; otherwise a fixed fallback ending is returned.
package ending

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// Rule is one ending and the thresholds that unlock it.
type Rule struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Priority      int     `yaml:"priority"`
	HopeMin       int     `yaml:"hope_min"`
	EmpathyMin    int     `yaml:"empathy_min"`
	DespairMax    int     `yaml:"despair_max"`
	LonelinessMax int     `yaml:"loneliness_max"`
	SaveRateMin   float64 `yaml:"save_rate_min"`

	// Presentation fields; never consulted during selection.
	Title      string   `yaml:"title"`
	Lines      []string `yaml:"lines"`
	BGM        string   `yaml:"bgm"`
	Background string   `yaml:"background"`
	Stars      int      `yaml:"stars"`
}

// Validate checks that the rule is well formed.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("ending rule: id must not be empty")
	}
	if r.SaveRateMin < 0 || r.SaveRateMin > 100 {
		return fmt.Errorf("ending rule %q: save_rate_min must be within [0, 100], got %g", r.ID, r.SaveRateMin)
	}
	if r.DespairMax < 0 || r.LonelinessMax < 0 {
		return fmt.Errorf("ending rule %q: despair_max and loneliness_max must be >= 0", r.ID)
	}
	return nil
}

// LoadRules parses a YAML list of ending rules.
//
// Postcondition: Returns validated rules with unique IDs, or an error.
func LoadRules(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing ending YAML: %w", err)
	}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("ending rule %q: duplicate id", r.ID)
		}
		seen[r.ID] = true
	}
	return rules, nil
}

// SaveRate returns savedCount / max(totalBattles, 1) × 100.
func SaveRate(savedCount, totalBattles int) float64 {
	return float64(savedCount) / float64(max(totalBattles, 1)) * 100
}

// Check is the outcome of one threshold comparison.
type Check struct {
	Name   string
	Actual float64
	Bound  float64
	// Min is true for ">=" thresholds and false for "<=" thresholds.
	Min bool
	OK  bool
}

func (c Check) String() string {
	op := "<="
	if c.Min {
		op = ">="
	}
	return fmt.Sprintf("%s %g %s %g = %t", c.Name, c.Actual, op, c.Bound, c.OK)
}

// Explain returns every threshold comparison of r against p, in a fixed order.
//
// Precondition: p must be non-nil.
func Explain(p *player.State, r Rule) []Check {
	rate := SaveRate(p.SavedCount, p.TotalBattles)
	minCheck := func(name string, actual, bound float64) Check {
		return Check{Name: name, Actual: actual, Bound: bound, Min: true, OK: actual >= bound}
	}
	maxCheck := func(name string, actual, bound float64) Check {
		return Check{Name: name, Actual: actual, Bound: bound, OK: actual <= bound}
	}
	return []Check{
		minCheck("hope", float64(p.Emotions.Hope), float64(r.HopeMin)),
		minCheck("empathy", float64(p.Emotions.Empathy), float64(r.EmpathyMin)),
		maxCheck("despair", float64(p.Emotions.Despair), float64(r.DespairMax)),
		maxCheck("loneliness", float64(p.Emotions.Loneliness), float64(r.LonelinessMax)),
		minCheck("save_rate", rate, r.SaveRateMin),
	}
}

// Matches reports whether every threshold of r holds for p.
func Matches(p *player.State, r Rule) bool {
	for _, c := range Explain(p, r) {
		if !c.OK {
			return false
		}
	}
	return true
}

// Ordered returns a copy of rules sorted by ascending priority. Rules with
// equal priority keep their relative order.
func Ordered(rules []Rule) []Rule {
	out := slices.Clone(rules)
	slices.SortStableFunc(out, func(a, b Rule) int { return a.Priority - b.Priority })
	return out
}

// Determine returns the ID of the first matching rule in priority order, or
// fallback when none match.
//
// Precondition: p must be non-nil.
// Postcondition: Neither p nor rules are modified.
func Determine(p *player.State, rules []Rule, fallback string) string {
	for _, r := range Ordered(rules) {
		if Matches(p, r) {
			return r.ID
		}
	}
	return fallback
}

// Evaluator holds an ordered rule set and logs each decision.
type Evaluator struct {
	rules    []Rule
	byID     map[string]Rule
	fallback string
	logger   *zap.Logger
}

// NewEvaluator creates an Evaluator over rules.
//
// Precondition: fallback must be non-empty; logger must be non-nil.
func NewEvaluator(rules []Rule, fallback string, logger *zap.Logger) *Evaluator {
	if fallback == "" {
		panic("ending.NewEvaluator: fallback must not be empty")
	}
	if logger == nil {
		panic("ending.NewEvaluator: logger must not be nil")
	}
	byID := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}
	return &Evaluator{rules: Ordered(rules), byID: byID, fallback: fallback, logger: logger}
}

// Determine selects the ending for p, logging every rule check at debug level.
//
// Postcondition: Returns the same ID as the package-level Determine.
func (e *Evaluator) Determine(p *player.State) string {
	e.logger.Debug("determining ending",
		zap.Int("hope", p.Emotions.Hope),
		zap.Int("empathy", p.Emotions.Empathy),
		zap.Int("despair", p.Emotions.Despair),
		zap.Int("loneliness", p.Emotions.Loneliness),
		zap.Float64("save_rate", SaveRate(p.SavedCount, p.TotalBattles)),
	)
	for _, r := range e.rules {
		checks := Explain(p, r)
		matched := true
		fields := make([]zap.Field, 0, len(checks)+2)
		fields = append(fields, zap.String("ending", r.ID))
		for _, c := range checks {
			fields = append(fields, zap.Stringer(c.Name, c))
			matched = matched && c.OK
		}
		fields = append(fields, zap.Bool("matched", matched))
		e.logger.Debug("ending check", fields...)
		if matched {
			return r.ID
		}
	}
	e.logger.Debug("no ending matched, using fallback", zap.String("ending", e.fallback))
	return e.fallback
}

// Rule returns the rule with id, if present.
func (e *Evaluator) Rule(id string) (Rule, bool) {
	r, ok := e.byID[id]
	return r, ok
}

// Fallback returns the fallback ending ID.
func (e *Evaluator) Fallback() string { return e.fallback }
