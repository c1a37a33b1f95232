package reportsvc

import (
	"sort"

	"github.com/shopspring/decimal"

	reportmodels "daily_ops/internal/api/report/models"
)

var hundred = decimal.NewFromInt(100)

// round2 làm tròn 2 chữ số thập phân
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// ratio a / b, b = 0 → 0
func ratio(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// breakdownMetrics tính số liệu của một dòng breakdown so với tổng doanh thu của nhóm
func breakdownMetrics(acc *metricAcc, groupRevenue decimal.Decimal) reportmodels.BreakdownMetrics {
	count := int64(len(acc.tickets))
	return reportmodels.BreakdownMetrics{
		TotalRevenue:            round2(acc.revenue),
		TotalRevenueExVat:       round2(acc.revenueEx),
		TotalQuantity:           round2(acc.quantity),
		TransactionCount:        count,
		AverageTransactionValue: round2(ratio(acc.revenue, decimal.NewFromInt(count))),
		PercentageOfTotal:       round2(ratio(acc.revenue, groupRevenue).Mul(hundred)),
	}
}

// BuildAggregate tính metric từ tích lũy của một nhóm. Hàm thuần: cùng input → cùng output.
// ComputedAt để trống, writer set lúc ghi.
func BuildAggregate(g *groupAcc, resolver WorkingDayResolver) reportmodels.SalesAggregate {
	total := g.total.revenue
	agg := reportmodels.SalesAggregate{
		LocationID:              g.key.LocationID,
		WorkingDay:              g.key.WorkingDay,
		BoundaryHour:            resolver.BoundaryHour,
		Timezone:                resolver.loc().String(),
		TotalQuantity:           round2(g.total.quantity),
		TotalRevenue:            round2(total),
		TotalRevenueExVat:       round2(g.total.revenueEx),
		TotalTransactions:       int64(len(g.total.tickets)),
		AverageTransactionValue: round2(ratio(total, decimal.NewFromInt(int64(len(g.total.tickets))))),
		PaymentMethodBreakdown:  keyBreakdowns(g.payment, total),
		WaiterBreakdown:         keyBreakdowns(g.waiter, total),
		TableBreakdown:          keyBreakdowns(g.table, total),
		CategoryBreakdown:       keyBreakdowns(g.category, total),
		HourlyBreakdown:         hourBreakdowns(g.hourly, total),
		WorkerHourlyBreakdown:   workerHourBreakdowns(g.workerHour, total),
		DivisionHourlyBreakdown: divisionHourBreakdowns(g.divisionHour, total),
		Labor:                   laborSummary(g.labor, g.total.revenueEx),
		LineCount:               g.lineCount,
	}
	return agg
}

// keyBreakdowns sắp giảm dần theo doanh thu, bằng nhau thì theo key
func keyBreakdowns(m map[string]*metricAcc, groupRevenue decimal.Decimal) []reportmodels.KeyBreakdown {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := m[keys[i]].revenue.Cmp(m[keys[j]].revenue); c != 0 {
			return c > 0
		}
		return keys[i] < keys[j]
	})
	out := make([]reportmodels.KeyBreakdown, 0, len(keys))
	for _, k := range keys {
		out = append(out, reportmodels.KeyBreakdown{Key: k, BreakdownMetrics: breakdownMetrics(m[k], groupRevenue)})
	}
	return out
}

// hourBreakdowns sắp tăng dần theo giờ
func hourBreakdowns(m map[int]*metricAcc, groupRevenue decimal.Decimal) []reportmodels.HourBreakdown {
	hours := make([]int, 0, len(m))
	for h := range m {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	out := make([]reportmodels.HourBreakdown, 0, len(hours))
	for _, h := range hours {
		out = append(out, reportmodels.HourBreakdown{Hour: h, BreakdownMetrics: breakdownMetrics(m[h], groupRevenue)})
	}
	return out
}

// workerHourBreakdowns sắp theo (giờ, waiter)
func workerHourBreakdowns(m map[workerHourKey]*metricAcc, groupRevenue decimal.Decimal) []reportmodels.WorkerHourBreakdown {
	keys := make([]workerHourKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hour != keys[j].hour {
			return keys[i].hour < keys[j].hour
		}
		return keys[i].waiter < keys[j].waiter
	})
	out := make([]reportmodels.WorkerHourBreakdown, 0, len(keys))
	for _, k := range keys {
		out = append(out, reportmodels.WorkerHourBreakdown{Waiter: k.waiter, Hour: k.hour, BreakdownMetrics: breakdownMetrics(m[k], groupRevenue)})
	}
	return out
}

// divisionHourBreakdowns sắp theo (giờ, division)
func divisionHourBreakdowns(m map[divisionHourKey]*metricAcc, groupRevenue decimal.Decimal) []reportmodels.DivisionHourBreakdown {
	keys := make([]divisionHourKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hour != keys[j].hour {
			return keys[i].hour < keys[j].hour
		}
		return keys[i].division < keys[j].division
	})
	out := make([]reportmodels.DivisionHourBreakdown, 0, len(keys))
	for _, k := range keys {
		out = append(out, reportmodels.DivisionHourBreakdown{Division: k.division, Hour: k.hour, BreakdownMetrics: breakdownMetrics(m[k], groupRevenue)})
	}
	return out
}

// laborSummary tổng hợp ca làm; nhân viên sắp giảm dần theo giờ công, bằng nhau thì theo id
func laborSummary(a *laborAcc, revenueExVat decimal.Decimal) reportmodels.LaborSummary {
	ids := make([]string, 0, len(a.workers))
	for id := range a.workers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if c := a.workers[ids[i]].hours.Cmp(a.workers[ids[j]].hours); c != 0 {
			return c > 0
		}
		return ids[i] < ids[j]
	})
	workers := make([]reportmodels.LaborWorkerBreakdown, 0, len(ids))
	for _, id := range ids {
		w := a.workers[id]
		workers = append(workers, reportmodels.LaborWorkerBreakdown{
			WorkerID:   id,
			WorkerName: w.name,
			Hours:      round2(w.hours),
			WageCost:   round2(w.wage),
			ShiftCount: w.shifts,
		})
	}
	return reportmodels.LaborSummary{
		TotalHours:          round2(a.hours),
		TotalWageCost:       round2(a.wage),
		ShiftCount:          a.shifts,
		WorkerCount:         int64(len(a.workers)),
		LaborCostPercentage: round2(ratio(a.wage, revenueExVat).Mul(hundred)),
		RevenuePerLaborHour: round2(ratio(revenueExVat, a.hours)),
		Workers:             workers,
	}
}
