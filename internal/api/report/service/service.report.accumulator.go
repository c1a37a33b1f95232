package reportsvc

import (
	"github.com/shopspring/decimal"

	reportmodels "daily_ops/internal/api/report/models"
)

// Giá trị thay thế khi line thiếu thông tin
const (
	UnknownPaymentMethod = "unknown"
	UncategorizedName    = "Uncategorized"
)

// metricAcc tổng tích lũy của một dòng breakdown. Dùng decimal để tổng không phụ thuộc thứ tự cộng.
type metricAcc struct {
	revenue   decimal.Decimal
	revenueEx decimal.Decimal
	quantity  decimal.Decimal
	tickets   map[string]struct{}
}

func newMetricAcc() *metricAcc {
	return &metricAcc{tickets: make(map[string]struct{})}
}

func (m *metricAcc) add(l *NormalizedLine) {
	m.revenue = m.revenue.Add(l.RevenueIncVat)
	m.revenueEx = m.revenueEx.Add(l.RevenueExVat)
	m.quantity = m.quantity.Add(l.Quantity)
	m.tickets[l.TicketKey] = struct{}{}
}

func (m *metricAcc) merge(o *metricAcc) {
	m.revenue = m.revenue.Add(o.revenue)
	m.revenueEx = m.revenueEx.Add(o.revenueEx)
	m.quantity = m.quantity.Add(o.quantity)
	for k := range o.tickets {
		m.tickets[k] = struct{}{}
	}
}

type workerHourKey struct {
	waiter string
	hour   int
}

type divisionHourKey struct {
	division string
	hour     int
}

// workerAcc tổng ca làm của một nhân viên
type workerAcc struct {
	name   string
	hours  decimal.Decimal
	wage   decimal.Decimal
	shifts int64
}

// laborAcc tổng ca làm của một nhóm
type laborAcc struct {
	hours   decimal.Decimal
	wage    decimal.Decimal
	shifts  int64
	workers map[string]*workerAcc
}

func newLaborAcc() *laborAcc {
	return &laborAcc{workers: make(map[string]*workerAcc)}
}

func (a *laborAcc) add(s *NormalizedShift) {
	a.hours = a.hours.Add(s.Hours)
	a.wage = a.wage.Add(s.WageCost)
	a.shifts++
	w := a.worker(s.WorkerID)
	w.hours = w.hours.Add(s.Hours)
	w.wage = w.wage.Add(s.WageCost)
	w.shifts++
	w.name = pickName(w.name, s.WorkerName)
}

func (a *laborAcc) merge(o *laborAcc) {
	a.hours = a.hours.Add(o.hours)
	a.wage = a.wage.Add(o.wage)
	a.shifts += o.shifts
	for id, ow := range o.workers {
		w := a.worker(id)
		w.hours = w.hours.Add(ow.hours)
		w.wage = w.wage.Add(ow.wage)
		w.shifts += ow.shifts
		w.name = pickName(w.name, ow.name)
	}
}

func (a *laborAcc) worker(id string) *workerAcc {
	w, ok := a.workers[id]
	if !ok {
		w = &workerAcc{}
		a.workers[id] = w
	}
	return w
}

// pickName chọn tên không rỗng nhỏ nhất theo thứ tự từ điển (không phụ thuộc thứ tự ca)
func pickName(current, candidate string) string {
	if candidate == "" {
		return current
	}
	if current == "" || candidate < current {
		return candidate
	}
	return current
}

// groupAcc tích lũy của một (locationId, workingDay)
type groupAcc struct {
	key          reportmodels.AggregateKey
	total        *metricAcc
	lineCount    int64
	payment      map[string]*metricAcc
	waiter       map[string]*metricAcc
	table        map[string]*metricAcc
	category     map[string]*metricAcc
	hourly       map[int]*metricAcc
	workerHour   map[workerHourKey]*metricAcc
	divisionHour map[divisionHourKey]*metricAcc
	labor        *laborAcc
}

func newGroupAcc(key reportmodels.AggregateKey) *groupAcc {
	return &groupAcc{
		key:          key,
		total:        newMetricAcc(),
		payment:      make(map[string]*metricAcc),
		waiter:       make(map[string]*metricAcc),
		table:        make(map[string]*metricAcc),
		category:     make(map[string]*metricAcc),
		hourly:       make(map[int]*metricAcc),
		workerHour:   make(map[workerHourKey]*metricAcc),
		divisionHour: make(map[divisionHourKey]*metricAcc),
		labor:        newLaborAcc(),
	}
}

// lineFacts các khóa breakdown đã tính sẵn cho một line
type lineFacts struct {
	hour         int
	mainCategory string
	division     string
}

// addLine cộng line vào tổng và đồng thời vào mọi breakdown.
// Line thiếu waiter/table chỉ bị loại khỏi breakdown tương ứng, tổng vẫn giữ.
func (g *groupAcc) addLine(l *NormalizedLine, f lineFacts) {
	g.lineCount++
	g.total.add(l)

	payment := l.PaymentMethod
	if payment == "" {
		payment = UnknownPaymentMethod
	}
	accFor(g.payment, payment).add(l)
	accFor(g.category, f.mainCategory).add(l)
	accFor(g.hourly, f.hour).add(l)

	if l.Waiter != "" {
		accFor(g.waiter, l.Waiter).add(l)
		accFor(g.workerHour, workerHourKey{waiter: l.Waiter, hour: f.hour}).add(l)
	}
	if l.Table != "" {
		accFor(g.table, l.Table).add(l)
	}
	if f.division != "" {
		accFor(g.divisionHour, divisionHourKey{division: f.division, hour: f.hour}).add(l)
	}
}

// merge gộp tích lũy của shard khác vào g (cộng tổng, hợp tập ticket)
func (g *groupAcc) merge(o *groupAcc) {
	g.lineCount += o.lineCount
	g.total.merge(o.total)
	mergeMaps(g.payment, o.payment)
	mergeMaps(g.waiter, o.waiter)
	mergeMaps(g.table, o.table)
	mergeMaps(g.category, o.category)
	mergeMaps(g.hourly, o.hourly)
	mergeMaps(g.workerHour, o.workerHour)
	mergeMaps(g.divisionHour, o.divisionHour)
	g.labor.merge(o.labor)
}

func accFor[K comparable](m map[K]*metricAcc, key K) *metricAcc {
	acc, ok := m[key]
	if !ok {
		acc = newMetricAcc()
		m[key] = acc
	}
	return acc
}

func mergeMaps[K comparable](dst, src map[K]*metricAcc) {
	for k, acc := range src {
		accFor(dst, k).merge(acc)
	}
}
