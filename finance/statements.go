package finance

import (
	"context"
	"fmt"
	"strconv"

	"travel-insight/access"
	"travel-insight/report"
)

// CreditDebitStatement classifies ledger entries by their type tag and sums
// each side. Net position is debits minus credits; positive means net debit.
type CreditDebitStatement struct {
	Range        Range   `json:"range"`
	TotalDebits  float64 `json:"total_debits"`
	TotalCredits float64 `json:"total_credits"`
	DebitCount   int     `json:"debit_count"`
	CreditCount  int     `json:"credit_count"`
	NetPosition  float64 `json:"net_position"`
}

func (s *Service) CreditDebit(ctx context.Context, caller access.Caller, r Range) (*CreditDebitStatement, error) {
	stmt, err := s.creditDebit(ctx, caller, r)
	s.record(caller, "credit-debit", r, err)
	return stmt, err
}

func (s *Service) creditDebit(ctx context.Context, caller access.Caller, r Range) (*CreditDebitStatement, error) {
	debits, err := s.sum(ctx, caller, "journal", "amount", rangeFilters("entryDate", r, map[string]any{"entryType": "DEBIT"}))
	if err != nil {
		return nil, err
	}
	credits, err := s.sum(ctx, caller, "journal", "amount", rangeFilters("entryDate", r, map[string]any{"entryType": "CREDIT"}))
	if err != nil {
		return nil, err
	}
	debitCount, err := s.count(ctx, caller, "journal", "id", rangeFilters("entryDate", r, map[string]any{"entryType": "DEBIT"}))
	if err != nil {
		return nil, err
	}
	creditCount, err := s.count(ctx, caller, "journal", "id", rangeFilters("entryDate", r, map[string]any{"entryType": "CREDIT"}))
	if err != nil {
		return nil, err
	}
	return &CreditDebitStatement{
		Range:        r,
		TotalDebits:  debits,
		TotalCredits: credits,
		DebitCount:   int(debitCount),
		CreditCount:  int(creditCount),
		NetPosition:  debits - credits,
	}, nil
}

// GSTSummary nets output tax collected on billings against input tax paid on
// the payment side. A range with no records yields zeros.
type GSTSummary struct {
	Range     Range   `json:"range"`
	OutputTax float64 `json:"output_tax"`
	InputTax  float64 `json:"input_tax"`
	Payable   float64 `json:"payable"`
}

func (s *Service) GST(ctx context.Context, caller access.Caller, r Range) (*GSTSummary, error) {
	summary, err := s.gst(ctx, caller, r)
	s.record(caller, "gst", r, err)
	return summary, err
}

func (s *Service) gst(ctx context.Context, caller access.Caller, r Range) (*GSTSummary, error) {
	output, err := s.sum(ctx, caller, "billing", "gstAmount", rangeFilters("billDate", r, nil))
	if err != nil {
		return nil, err
	}
	input, err := s.sum(ctx, caller, "payment", "gstInput", rangeFilters("payDate", r, nil))
	if err != nil {
		return nil, err
	}
	return &GSTSummary{
		Range:     r,
		OutputTax: output,
		InputTax:  input,
		Payable:   output - input,
	}, nil
}

// AgentRevenue is one entry of the top-agents ranking.
type AgentRevenue struct {
	AgentID string  `json:"agent_id"`
	Revenue float64 `json:"revenue"`
}

// RevenueAnalysis sums booking, billing and payment revenue independently —
// they are different recognition points, not assumed equal — and ranks agents
// by booking revenue.
type RevenueAnalysis struct {
	Range           Range          `json:"range"`
	BookingRevenue  float64        `json:"booking_revenue"`
	BillingRevenue  float64        `json:"billing_revenue"`
	PaymentRevenue  float64        `json:"payment_revenue"`
	TopAgents       []AgentRevenue `json:"top_agents"`
	DistinctClasses int            `json:"distinct_classes"`
}

func (s *Service) Revenue(ctx context.Context, caller access.Caller, r Range) (*RevenueAnalysis, error) {
	analysis, err := s.revenue(ctx, caller, r)
	s.record(caller, "revenue", r, err)
	return analysis, err
}

func (s *Service) revenue(ctx context.Context, caller access.Caller, r Range) (*RevenueAnalysis, error) {
	booking, err := s.sum(ctx, caller, "booking", "totalAmount", rangeFilters("travelDate", r, nil))
	if err != nil {
		return nil, err
	}
	billing, err := s.sum(ctx, caller, "billing", "amount", rangeFilters("billDate", r, nil))
	if err != nil {
		return nil, err
	}
	payment, err := s.sum(ctx, caller, "payment", "amount", rangeFilters("payDate", r, map[string]any{"direction": "IN"}))
	if err != nil {
		return nil, err
	}

	topCfg := report.QueryConfig{
		ReportType: "booking",
		Columns:    []string{"agentId", "SUM(totalAmount)"},
		Filters:    rangeFilters("travelDate", r, nil),
		GroupBy:    []string{"agentId"},
		OrderBy:    []report.OrderBy{{Column: "totalAmount_sum", Desc: true}},
		Limit:      5,
	}
	topRes, err := s.Engine.Execute(ctx, topCfg, caller)
	if err != nil {
		return nil, err
	}
	topAgents := make([]AgentRevenue, 0, len(topRes.Rows))
	for _, row := range topRes.Rows {
		topAgents = append(topAgents, AgentRevenue{
			AgentID: asString(row["agentId"]),
			Revenue: asFloat(row["totalAmount_sum"]),
		})
	}

	classCfg := report.QueryConfig{
		ReportType: "booking",
		Columns:    []string{"class"},
		Filters:    rangeFilters("travelDate", r, nil),
		GroupBy:    []string{"class"},
	}
	classRes, err := s.Engine.Execute(ctx, classCfg, caller)
	if err != nil {
		return nil, err
	}

	return &RevenueAnalysis{
		Range:           r,
		BookingRevenue:  booking,
		BillingRevenue:  billing,
		PaymentRevenue:  payment,
		TopAgents:       topAgents,
		DistinctClasses: len(classRes.Rows),
	}, nil
}

// ProfitLossStatement: gross profit = revenue − direct expenses, net profit =
// gross − salaries, margin = net/revenue × 100 with a zero-revenue guard.
type ProfitLossStatement struct {
	Range          Range   `json:"range"`
	Revenue        float64 `json:"revenue"`
	DirectExpenses float64 `json:"direct_expenses"`
	GrossProfit    float64 `json:"gross_profit"`
	SalaryCosts    float64 `json:"salary_costs"`
	NetProfit      float64 `json:"net_profit"`
	MarginPct      float64 `json:"margin_pct"`
}

func (s *Service) ProfitLoss(ctx context.Context, caller access.Caller, r Range) (*ProfitLossStatement, error) {
	stmt, err := s.profitLoss(ctx, caller, r)
	s.record(caller, "profit-loss", r, err)
	return stmt, err
}

func (s *Service) profitLoss(ctx context.Context, caller access.Caller, r Range) (*ProfitLossStatement, error) {
	revenue, err := s.sum(ctx, caller, "booking", "totalAmount", rangeFilters("travelDate", r, nil))
	if err != nil {
		return nil, err
	}
	expenses, err := s.sum(ctx, caller, "payment", "amount", rangeFilters("payDate", r, map[string]any{"direction": "OUT", "category": "EXPENSE"}))
	if err != nil {
		return nil, err
	}
	salaries, err := s.sum(ctx, caller, "payment", "amount", rangeFilters("payDate", r, map[string]any{"direction": "OUT", "category": "SALARY"}))
	if err != nil {
		return nil, err
	}

	gross := revenue - expenses
	net := gross - salaries
	margin := 0.0
	if revenue != 0 {
		margin = net / revenue * 100
	}
	return &ProfitLossStatement{
		Range:          r,
		Revenue:        revenue,
		DirectExpenses: expenses,
		GrossProfit:    gross,
		SalaryCosts:    salaries,
		NetProfit:      net,
		MarginPct:      margin,
	}, nil
}

// CashFlowStatement: inflows are collected payments, outflows are expense
// payments plus salaries; closing = opening + (inflows − outflows).
type CashFlowStatement struct {
	Range          Range   `json:"range"`
	OpeningBalance float64 `json:"opening_balance"`
	Inflows        float64 `json:"inflows"`
	Outflows       float64 `json:"outflows"`
	NetChange      float64 `json:"net_change"`
	ClosingBalance float64 `json:"closing_balance"`
}

func (s *Service) CashFlow(ctx context.Context, caller access.Caller, r Range, opening float64) (*CashFlowStatement, error) {
	stmt, err := s.cashFlow(ctx, caller, r, opening)
	s.record(caller, "cash-flow", r, err)
	return stmt, err
}

func (s *Service) cashFlow(ctx context.Context, caller access.Caller, r Range, opening float64) (*CashFlowStatement, error) {
	inflows, err := s.sum(ctx, caller, "payment", "amount", rangeFilters("payDate", r, map[string]any{"direction": "IN"}))
	if err != nil {
		return nil, err
	}
	outflows, err := s.sum(ctx, caller, "payment", "amount", rangeFilters("payDate", r, map[string]any{"direction": "OUT"}))
	if err != nil {
		return nil, err
	}
	net := inflows - outflows
	return &CashFlowStatement{
		Range:          r,
		OpeningBalance: opening,
		Inflows:        inflows,
		Outflows:       outflows,
		NetChange:      net,
		ClosingBalance: opening + net,
	}, nil
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(val), 64)
		return f
	default:
		return 0
	}
}
