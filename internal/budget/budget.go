package budget

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/msalah0e/cloudcanvas/internal/config"
)

// Budget defines monthly spending limits for designed architectures.
type Budget struct {
	MonthlyLimit float64            `toml:"monthly_limit"`
	AlertAt      float64            `toml:"alert_at"`     // fraction (0.8 = 80%)
	PerCategory  map[string]float64 `toml:"per_category"` // category monthly limits
	// PerWorkspace overrides MonthlyLimit for individual workspaces.
	PerWorkspace map[string]float64 `toml:"per_workspace"`
}

// Status is an estimate measured against the budget.
type Status struct {
	MonthlyLimit float64
	MonthlyCost  float64
	PercentUsed  float64
	IsOverBudget bool
	IsNearBudget bool
	// OverCategories lists categories whose own limit is reached.
	OverCategories []string
}

func budgetPath() string {
	return filepath.Join(config.ConfigDir(), "budget.toml")
}

// Load reads the budget configuration.
func Load() *Budget {
	b := &Budget{AlertAt: 0.8}
	if data, err := os.ReadFile(budgetPath()); err == nil {
		_ = toml.Unmarshal(data, b)
	}
	if b.PerCategory == nil {
		b.PerCategory = make(map[string]float64)
	}
	if b.PerWorkspace == nil {
		b.PerWorkspace = make(map[string]float64)
	}
	return b
}

// Save writes the budget configuration.
func Save(b *Budget) error {
	path := budgetPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(b)
}

// Limit returns the monthly limit that applies to a workspace. Zero means
// no limit.
func (b *Budget) Limit(workspaceID string) float64 {
	if l, ok := b.PerWorkspace[workspaceID]; ok {
		return l
	}
	return b.MonthlyLimit
}

// Evaluate measures a monthly estimate for a workspace, total and per
// category, against the budget.
func (b *Budget) Evaluate(workspaceID string, total float64, byCategory map[string]float64) *Status {
	s := &Status{
		MonthlyLimit: b.Limit(workspaceID),
		MonthlyCost:  total,
	}
	if s.MonthlyLimit > 0 {
		s.PercentUsed = (total / s.MonthlyLimit) * 100
		s.IsOverBudget = total >= s.MonthlyLimit
		s.IsNearBudget = total >= s.MonthlyLimit*b.AlertAt
	}
	for _, cat := range sortedKeys(b.PerCategory) {
		if limit := b.PerCategory[cat]; limit > 0 && byCategory[cat] >= limit {
			s.OverCategories = append(s.OverCategories, cat)
		}
	}
	return s
}

// Check returns an error describing the first limit the estimate breaks.
func (b *Budget) Check(workspaceID string, total float64, byCategory map[string]float64) error {
	s := b.Evaluate(workspaceID, total, byCategory)
	if s.IsOverBudget {
		return fmt.Errorf("monthly budget exceeded ($%.2f / $%.2f)", s.MonthlyCost, s.MonthlyLimit)
	}
	if len(s.OverCategories) > 0 {
		cat := s.OverCategories[0]
		return fmt.Errorf("category budget exceeded for %s ($%.2f / $%.2f)", cat, byCategory[cat], b.PerCategory[cat])
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
