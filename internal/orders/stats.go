package orders

import (
	"context"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats summarizes the order book for the dashboard: a count per
// status, the number of paid orders, and the value paid in the current
// month.
type Stats struct {
	NotAssignedOrders   int64   `json:"notAssignedOrders"`
	AssignedOrders      int64   `json:"assignedOrders"`
	PendingReviewOrders int64   `json:"pendingReviewOrders"`
	VerifiedOrders      int64   `json:"verifiedOrders"`
	PaidOrders          int64   `json:"paidOrders"`
	CanceledOrders      int64   `json:"canceledOrders"`
	TotalValue          float64 `json:"totalValue"`
	TotalValueDisplay   string  `json:"totalValueDisplay"`
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders a money amount for display, with thousands
// grouping.
func FormatMoney(v float64) string {
	return moneyPrinter.Sprintf("$%.2f", v)
}

// monthWindow returns the half-open interval covering now's month.
func monthWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// StatsFor computes the summary via SQL aggregates over the orders
// matching filter, using the same WHERE clause as the listing. An
// empty filter covers the whole order book.
func (s *Service) StatsFor(ctx context.Context, filter ListFilter, now time.Time) (Stats, error) {
	counts, err := s.deps.Repo.CountByStatus(ctx, filter)
	if err != nil {
		return Stats{}, err
	}

	from, to := monthWindow(now)
	paidThisMonth, err := s.deps.Repo.SumPaidBetween(ctx, filter, from, to)
	if err != nil {
		return Stats{}, err
	}

	total := roundMoney(paidThisMonth)
	return Stats{
		NotAssignedOrders:   counts[StatusNotAssigned],
		AssignedOrders:      counts[StatusAssigned],
		PendingReviewOrders: counts[StatusPendingReview],
		VerifiedOrders:      counts[StatusVerified],
		PaidOrders:          counts[StatusPaid],
		CanceledOrders:      counts[StatusCanceled],
		TotalValue:          total,
		TotalValueDisplay:   FormatMoney(total),
	}, nil
}

// GlobalStats is StatsFor over the whole order book; the cached
// dashboard path and the warmup job go through it.
func (s *Service) GlobalStats(ctx context.Context, now time.Time) (Stats, error) {
	return s.StatsFor(ctx, ListFilter{}, now)
}
