package models

import "time"

// BalanceSheet groups account balances by type at a point in time
type BalanceSheet struct {
	AsOf         time.Time          `json:"as_of"`
	TotalsByType map[string]float64 `json:"totals_by_type"`
	Assets       float64            `json:"assets"`
	Liabilities  float64            `json:"liabilities"`
	Equity       float64            `json:"equity"`
}

// TransactionTypeBreakdown summarizes transactions of one type in a period
type TransactionTypeBreakdown struct {
	TransactionType TransactionType `json:"transaction_type"`
	Count           int             `json:"count"`
	TotalAmount     float64         `json:"total_amount"`
}

// IncomeStatement reports platform revenue over a period
type IncomeStatement struct {
	StartDate    time.Time                  `json:"start_date"`
	EndDate      time.Time                  `json:"end_date"`
	TotalRevenue float64                    `json:"total_revenue"`
	Breakdown    []TransactionTypeBreakdown `json:"breakdown"`
}
