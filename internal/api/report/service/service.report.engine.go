package reportsvc

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	posmodels "daily_ops/internal/api/pos/models"
	reportmodels "daily_ops/internal/api/report/models"
)

// ctxCheckEvery số bản ghi giữa hai lần kiểm tra context trong một shard
const ctxCheckEvery = 256

// RecordWarning bản ghi nguồn bị bỏ qua (không làm dừng batch)
type RecordWarning struct {
	RecordID   string
	LocationID string
	Reason     string
}

// Engine gom nhóm line/ca làm theo (locationId, workingDay) và tích lũy các breakdown.
// Mỗi shard giảm một phần input vào map riêng, sau đó gộp theo thứ tự shard.
type Engine struct {
	resolver   WorkingDayResolver
	categories *CategoryCatalog
	workers    int
}

// NewEngine tạo engine. categories nil = mọi danh mục dùng fallback phẳng.
func NewEngine(resolver WorkingDayResolver, categories *CategoryCatalog, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{resolver: resolver, categories: categories, workers: workers}
}

// AggregateResult kết quả gom nhóm trước khi tính metric
type AggregateResult struct {
	groups   map[reportmodels.AggregateKey]*groupAcc
	resolver WorkingDayResolver
	Warnings []RecordWarning
}

// Len số nhóm (locationId, workingDay)
func (r *AggregateResult) Len() int {
	return len(r.groups)
}

// Keys danh sách key đã sắp xếp
func (r *AggregateResult) Keys() []reportmodels.AggregateKey {
	keys := make([]reportmodels.AggregateKey, 0, len(r.groups))
	for k := range r.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LocationID != keys[j].LocationID {
			return keys[i].LocationID < keys[j].LocationID
		}
		return keys[i].WorkingDay < keys[j].WorkingDay
	})
	return keys
}

// Aggregates tính metric cho mọi nhóm, sắp theo (locationId, workingDay)
func (r *AggregateResult) Aggregates() []reportmodels.SalesAggregate {
	keys := r.Keys()
	out := make([]reportmodels.SalesAggregate, 0, len(keys))
	for _, k := range keys {
		out = append(out, BuildAggregate(r.groups[k], r.resolver))
	}
	return out
}

type shardResult struct {
	groups   map[reportmodels.AggregateKey]*groupAcc
	warnings []RecordWarning
}

// Aggregate gom nhóm giao dịch và ca làm. Bản ghi lỗi được ghi thành cảnh báo và bỏ qua;
// chỉ hủy context mới làm Aggregate trả lỗi.
func (e *Engine) Aggregate(ctx context.Context, txs []posmodels.PosTransaction, shifts []posmodels.PosLaborShift) (*AggregateResult, error) {
	n := e.workers
	if size := max(len(txs), len(shifts)); size < n {
		n = max(size, 1)
	}

	results := make([]*shardResult, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		txPart := chunk(txs, i, n)
		shiftPart := chunk(shifts, i, n)
		g.Go(func() error {
			res, err := e.reduceShard(gctx, txPart, shiftPart)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &AggregateResult{
		groups:   make(map[reportmodels.AggregateKey]*groupAcc),
		resolver: e.resolver,
	}
	for _, res := range results {
		for key, acc := range res.groups {
			if existing, ok := out.groups[key]; ok {
				existing.merge(acc)
				continue
			}
			out.groups[key] = acc
		}
		out.Warnings = append(out.Warnings, res.warnings...)
	}
	return out, nil
}

// chunk trả về phần thứ i trong n phần liên tiếp của items
func chunk[T any](items []T, i, n int) []T {
	size := (len(items) + n - 1) / n
	from := i * size
	if from >= len(items) {
		return nil
	}
	to := min(from+size, len(items))
	return items[from:to]
}

type factKey struct {
	location string
	category string
}

func (e *Engine) reduceShard(ctx context.Context, txs []posmodels.PosTransaction, shifts []posmodels.PosLaborShift) (*shardResult, error) {
	res := &shardResult{groups: make(map[reportmodels.AggregateKey]*groupAcc)}
	facts := make(map[factKey]lineFacts)

	for i := range txs {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		tx := &txs[i]
		lines, err := ExpandTransaction(*tx, e.resolver.Location)
		if err != nil {
			res.warnings = append(res.warnings, RecordWarning{
				RecordID:   tx.ID.Hex(),
				LocationID: tx.LocationID,
				Reason:     err.Error(),
			})
			continue
		}
		for j := range lines {
			l := &lines[j]
			f := e.categoryFacts(facts, l)
			f.hour = e.resolver.Hour(l.Timestamp)
			key := reportmodels.AggregateKey{LocationID: l.LocationID, WorkingDay: l.WorkingDayKey(e.resolver)}
			groupFor(res.groups, key).addLine(l, f)
		}
	}

	for i := range shifts {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		shift, err := NormalizeShift(shifts[i], e.resolver.Location)
		if err != nil {
			res.warnings = append(res.warnings, RecordWarning{
				RecordID:   shifts[i].ID.Hex(),
				LocationID: shifts[i].Location(),
				Reason:     err.Error(),
			})
			continue
		}
		key := reportmodels.AggregateKey{LocationID: shift.LocationID, WorkingDay: shift.WorkingDayKey(e.resolver)}
		groupFor(res.groups, key).labor.add(&shift)
	}
	return res, nil
}

// categoryFacts resolve main category + division của line, nhớ theo (location, category) trong shard
func (e *Engine) categoryFacts(cache map[factKey]lineFacts, l *NormalizedLine) lineFacts {
	leaf := l.Category
	if leaf == "" {
		leaf = UncategorizedName
	}
	k := factKey{location: l.LocationID, category: leaf}
	if f, ok := cache[k]; ok {
		return f
	}
	res := e.categories.For(l.LocationID).Resolve(leaf)
	f := lineFacts{mainCategory: leaf}
	if res.MainCategory != nil {
		f.mainCategory = *res.MainCategory
	}
	f.division = ClassifyDivision(res.MainCategory, leaf)
	cache[k] = f
	return f
}

func groupFor(groups map[reportmodels.AggregateKey]*groupAcc, key reportmodels.AggregateKey) *groupAcc {
	g, ok := groups[key]
	if !ok {
		g = newGroupAcc(key)
		groups[key] = g
	}
	return g
}

// IsCanceled cho biết lỗi đến từ context bị hủy / hết hạn
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
