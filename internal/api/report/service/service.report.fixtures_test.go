package reportsvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	posmodels "daily_ops/internal/api/pos/models"
	reportmodels "daily_ops/internal/api/report/models"
)

func utcResolver(boundary int) WorkingDayResolver {
	return WorkingDayResolver{Location: time.UTC, BoundaryHour: boundary}
}

func at(day string, hour, minute int) time.Time {
	d, _ := time.ParseInLocation(DayLayout, day, time.UTC)
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func line(category string, qty, totalInc float64, extra map[string]interface{}) map[string]interface{} {
	l := map[string]interface{}{
		"ProductName":      category + " item",
		"ProductGroupName": category,
		"Quantity":         qty,
		"TotalInc":         totalInc,
	}
	for k, v := range extra {
		l[k] = v
	}
	return l
}

func ticket(id string, ts time.Time, lines ...map[string]interface{}) map[string]interface{} {
	ls := make([]interface{}, 0, len(lines))
	for _, l := range lines {
		ls = append(ls, l)
	}
	return map[string]interface{}{
		"TicketId":  id,
		"Timestamp": ts,
		"Orders":    []interface{}{map[string]interface{}{"Lines": ls}},
	}
}

func txOf(loc string, date time.Time, payload interface{}) posmodels.PosTransaction {
	return posmodels.PosTransaction{ID: primitive.NewObjectID(), LocationID: loc, Date: date, Payload: payload}
}

// scenarioA hai ticket ngày 2024-03-01 tại L: Food lúc 19:00 trả cash, Beverage lúc 20:00 trả card
func scenarioA() []posmodels.PosTransaction {
	return []posmodels.PosTransaction{
		txOf("L", at("2024-03-01", 19, 0), []interface{}{
			ticket("1", at("2024-03-01", 19, 0), line("Keuken Hoofdgerecht", 2, 25.00, map[string]interface{}{"PaymentMethod": "cash"})),
		}),
		txOf("L", at("2024-03-01", 20, 0), []interface{}{
			ticket("2", at("2024-03-01", 20, 0), line("Bar Bier", 3, 15.00, map[string]interface{}{"PaymentMethod": "card"})),
		}),
	}
}

// fakeSource nguồn dữ liệu trong bộ nhớ, đếm số lần gọi
type fakeSource struct {
	mu         sync.Mutex
	txs        []posmodels.PosTransaction
	shifts     []posmodels.PosLaborShift
	categories []posmodels.PosCategory
	calls      int
	txErr      error
	lastFrom   time.Time
	lastTo     time.Time
}

func (f *fakeSource) FindTransactions(_ context.Context, locationID string, from, to time.Time) ([]posmodels.PosTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFrom, f.lastTo = from, to
	if f.txErr != nil {
		return nil, f.txErr
	}
	// Lọc như query Mongo: date ∈ [from, to)
	var out []posmodels.PosTransaction
	for _, tx := range f.txs {
		if locationID != "" && tx.LocationID != locationID {
			continue
		}
		if tx.Date.Before(from) || !tx.Date.Before(to) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeSource) FindLaborShifts(_ context.Context, locationID string, from, to time.Time) ([]posmodels.PosLaborShift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []posmodels.PosLaborShift
	for _, s := range f.shifts {
		if locationID != "" && s.Location() != locationID {
			continue
		}
		if s.Date.Before(from) || !s.Date.Before(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSource) FindCategories(_ context.Context, _ string) ([]posmodels.PosCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.categories, nil
}

// fakeAggregateColl giữ document theo (locationId, workingDay) như collection thật với ReplaceOne upsert
type fakeAggregateColl struct {
	mu      sync.Mutex
	calls   [][]mongo.WriteModel
	docs    map[reportmodels.AggregateKey]reportmodels.SalesAggregate
	failOn  int // lần gọi BulkWrite thứ mấy (1-based) trả lỗi, 0 = không lỗi
	failErr error
	failRes *mongo.BulkWriteResult
}

func newFakeAggregateColl() *fakeAggregateColl {
	return &fakeAggregateColl{docs: make(map[reportmodels.AggregateKey]reportmodels.SalesAggregate)}
}

func (f *fakeAggregateColl) BulkWrite(_ context.Context, models []mongo.WriteModel, _ ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, models)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return f.failRes, f.failErr
	}
	res := &mongo.BulkWriteResult{}
	for _, m := range models {
		rm := m.(*mongo.ReplaceOneModel)
		doc := rm.Replacement.(reportmodels.SalesAggregate)
		if _, exists := f.docs[doc.Key()]; exists {
			res.MatchedCount++
		} else {
			res.UpsertedCount++
		}
		f.docs[doc.Key()] = doc
	}
	return res, nil
}

func (f *fakeAggregateColl) Find(_ context.Context, _ interface{}, _ ...*options.FindOptions) (*mongo.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]interface{}, 0, len(f.docs))
	for _, d := range f.docs {
		docs = append(docs, d)
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeAggregateColl) upserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

// fakeLocker locker trong bộ nhớ
type fakeLocker struct {
	err      error
	acquired []string
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, scope string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, scope)
	return func() { l.released++ }, nil
}

func newTestService(t *testing.T, src *fakeSource, coll *fakeAggregateColl, locker RunLocker) *ReportService {
	t.Helper()
	svc, err := New(Deps{
		Transactions: src,
		Labor:        src,
		Categories:   src,
		Aggregates:   coll,
		Locker:       locker,
	}, Options{Timezone: "UTC", BoundaryHour: 6, Workers: 4, WriteBatchSize: 2})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.writer.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}
