package billing

import (
	_ "embed"
	"fmt"

	"quantprep/internal/domain/user"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var bundledPlans []byte

type Plan struct {
	ID              user.Plan `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Price           string    `json:"price" yaml:"price"`
	Description     string    `json:"description" yaml:"description"`
	Popular         bool      `json:"popular" yaml:"popular"`
	Features        []string  `json:"features" yaml:"features"`
	Limitations     []string  `json:"limitations,omitempty" yaml:"limitations"`
	MonthlySessions int       `json:"monthly_sessions"`
	PriceID         string    `json:"price_id,omitempty"`
}

func loadPlans(data []byte, cfg Config) ([]Plan, error) {
	var plans []Plan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	for i := range plans {
		if _, ok := user.ParsePlan(string(plans[i].ID)); !ok {
			return nil, fmt.Errorf("plans: unknown plan id %q", plans[i].ID)
		}
		switch plans[i].ID {
		case user.PlanFree:
			plans[i].MonthlySessions = cfg.FreeMonthlySessionLimit
			if cfg.FreeMonthlySessionLimit > 0 {
				plans[i].Features = append([]string{fmt.Sprintf("%d practice sessions per month", cfg.FreeMonthlySessionLimit)}, plans[i].Features...)
			}
		case user.PlanPro:
			plans[i].PriceID = cfg.ProPriceID
		case user.PlanEnterprise:
			plans[i].PriceID = cfg.EnterprisePriceID
		}
	}
	return plans, nil
}
