package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsForStatusFilter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	now := env.repo.now
	thisMonth := now.AddDate(0, 0, -5)
	lastMonth := now.AddDate(0, -1, 0)

	paid1 := env.repo.seed(StatusPaid, nil, nil, []OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: 10}})
	paid1.PaidAt = &thisMonth
	paid2 := env.repo.seed(StatusPaid, nil, nil, []OrderItem{{ProductID: 2, Quantity: 1, UnitPrice: 20}})
	paid2.PaidAt = &lastMonth
	env.repo.seed(StatusAssigned, nil, nil, []OrderItem{{ProductID: 3, Quantity: 1, UnitPrice: 5}})

	status := StatusPaid
	stats, err := env.svc.StatsFor(ctx, ListFilter{Status: &status}, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.PaidOrders)
	require.Equal(t, int64(0), stats.AssignedOrders)
	require.Equal(t, 10.0, stats.TotalValue)
}

func TestStatsForSupplierFilter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	now := env.repo.now

	acme := env.repo.seed(StatusPaid, nil, nil, []OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: 10}})
	acme.PaidAt = &now
	other := env.repo.seed(StatusPaid, nil, nil, []OrderItem{{ProductID: 2, Quantity: 1, UnitPrice: 40}})
	other.Supplier = "Harbor Fish Co"
	other.PaidAt = &now

	stats, err := env.svc.StatsFor(ctx, ListFilter{Supplier: "Harbor Fish Co"}, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.PaidOrders)
	require.Equal(t, 40.0, stats.TotalValue)
}

func TestStatsForEmptyBook(t *testing.T) {
	env := newTestEnv()

	stats, err := env.svc.StatsFor(context.Background(), ListFilter{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, Stats{TotalValueDisplay: "$0.00"}, stats)
}

func TestMonthWindow(t *testing.T) {
	now := time.Date(2026, 12, 15, 8, 30, 0, 0, time.UTC)
	from, to := monthWindow(now)
	require.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestRoundMoney(t *testing.T) {
	require.Equal(t, 25.0, roundMoney(10*2.5))
	require.Equal(t, 0.3, roundMoney(0.1+0.2))
	require.Equal(t, 1.67, roundMoney(5.0/3.0))
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$10.00", FormatMoney(10))
	require.Equal(t, "$1,234.50", FormatMoney(1234.5))
}
