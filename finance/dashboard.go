package finance

import (
	"context"

	"travel-insight/access"
)

// Dashboard composes every statement over one range and scores four
// indicators — profitability, margin tier, cash-flow sign, cash position —
// into a 0–100 health figure with a banded label.
type Dashboard struct {
	Range       Range                 `json:"range"`
	ProfitLoss  *ProfitLossStatement  `json:"profit_loss"`
	CashFlow    *CashFlowStatement    `json:"cash_flow"`
	Revenue     *RevenueAnalysis      `json:"revenue"`
	GST         *GSTSummary           `json:"gst"`
	CreditDebit *CreditDebitStatement `json:"credit_debit"`
	HealthScore int                   `json:"health_score"`
	HealthLabel string                `json:"health_label"`
}

func (s *Service) Dashboard(ctx context.Context, caller access.Caller, r Range, opening float64) (*Dashboard, error) {
	d, err := s.dashboard(ctx, caller, r, opening)
	s.record(caller, "dashboard", r, err)
	return d, err
}

func (s *Service) dashboard(ctx context.Context, caller access.Caller, r Range, opening float64) (*Dashboard, error) {
	pl, err := s.profitLoss(ctx, caller, r)
	if err != nil {
		return nil, err
	}
	cf, err := s.cashFlow(ctx, caller, r, opening)
	if err != nil {
		return nil, err
	}
	rev, err := s.revenue(ctx, caller, r)
	if err != nil {
		return nil, err
	}
	gst, err := s.gst(ctx, caller, r)
	if err != nil {
		return nil, err
	}
	cd, err := s.creditDebit(ctx, caller, r)
	if err != nil {
		return nil, err
	}

	score := healthScore(pl, cf)
	return &Dashboard{
		Range:       r,
		ProfitLoss:  pl,
		CashFlow:    cf,
		Revenue:     rev,
		GST:         gst,
		CreditDebit: cd,
		HealthScore: score,
		HealthLabel: healthLabel(score),
	}, nil
}

func healthScore(pl *ProfitLossStatement, cf *CashFlowStatement) int {
	score := 0
	if pl.NetProfit > 0 {
		score += 40
	}
	switch {
	case pl.MarginPct >= 15:
		score += 20
	case pl.MarginPct >= 5:
		score += 10
	}
	if cf.NetChange > 0 {
		score += 20
	}
	if cf.ClosingBalance > 0 {
		score += 20
	}
	return score
}

func healthLabel(score int) string {
	switch {
	case score >= 80:
		return "Strong"
	case score >= 55:
		return "Stable"
	case score >= 30:
		return "Caution"
	default:
		return "Critical"
	}
}
