package reportsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	posmodels "daily_ops/internal/api/pos/models"
	"daily_ops/internal/api/report/dto"
	reportmodels "daily_ops/internal/api/report/models"
	"daily_ops/internal/common"
	"daily_ops/internal/global"
	"daily_ops/internal/logger"
)

// MaxRunDays số working day tối đa của một lần chạy
const MaxRunDays = 366

// DefaultFetchPadding khoảng nới tối thiểu mỗi bên của window fetch (đủ cho ca làm chỉ có ngày 00:00).
// date của bản ghi có thể là thời điểm sync hoặc ngày kinh doanh 00:00, lệch khỏi thời điểm bán.
const DefaultFetchPadding = 24 * time.Hour

// Options tham số engine của một ReportService
type Options struct {
	Timezone         string        // Timezone tham chiếu cắt ngày
	BoundaryHour     int           // Giờ bắt đầu working day (0-23)
	Workers          int           // Số shard song song
	CategoryMaxDepth int           // Giới hạn duyệt cây danh mục
	WriteBatchSize   int           // Số upsert mỗi lần BulkWrite
	FetchPadding     time.Duration // Nới window fetch mỗi bên, tối thiểu DefaultFetchPadding
}

// aggregateCollection phần của collection aggregate mà service dùng
type aggregateCollection interface {
	bulkWriter
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// dirtyCollection phần của collection dirty days mà service dùng
type dirtyCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Deps các collaborator của ReportService. Locker nil = không khóa.
type Deps struct {
	Transactions TransactionSource
	Labor        LaborSource
	Categories   CategorySource
	Aggregates   aggregateCollection
	DirtyDays    dirtyCollection
	Locker       RunLocker
}

// ReportService chạy batch aggregate: Fetch → Normalize → Group/Aggregate → Metrics → Dedupe → Upsert.
// Stateless giữa các lần chạy, chạy lại cùng khoảng ngày là an toàn.
type ReportService struct {
	deps     Deps
	opts     Options
	resolver WorkingDayResolver
	writer   *AggregateWriter
	now      func() time.Time // Đồng hồ cho dirty days
}

// NewReportService tạo service với các collection lấy từ registry
func NewReportService(opts Options, locker RunLocker) (*ReportService, error) {
	source, err := NewPosSource()
	if err != nil {
		return nil, err
	}
	aggColl, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.SalesAggregates)
	if !ok {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.SalesAggregates, common.ErrNotFound)
	}
	dirtyColl, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.DirtyDays)
	if !ok {
		return nil, fmt.Errorf("không tìm thấy collection %s: %w", global.MongoDB_ColNames.DirtyDays, common.ErrNotFound)
	}
	return New(Deps{
		Transactions: source,
		Labor:        source,
		Categories:   source,
		Aggregates:   aggColl,
		DirtyDays:    dirtyColl,
		Locker:       locker,
	}, opts)
}

// New tạo service từ collaborator cho sẵn
func New(deps Deps, opts Options) (*ReportService, error) {
	resolver, err := NewWorkingDayResolver(opts.Timezone, opts.BoundaryHour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), common.ErrInvalidInput)
	}
	if opts.CategoryMaxDepth <= 0 {
		opts.CategoryMaxDepth = DefaultCategoryMaxDepth
	}
	if opts.FetchPadding < DefaultFetchPadding {
		opts.FetchPadding = DefaultFetchPadding
	}
	return &ReportService{
		deps:     deps,
		opts:     opts,
		resolver: resolver,
		writer:   NewAggregateWriter(deps.Aggregates, opts.WriteBatchSize),
		now:      time.Now,
	}, nil
}

// Resolver trả về working-day resolver của service
func (s *ReportService) Resolver() WorkingDayResolver {
	return s.resolver
}

// ValidateRequest kiểm tra phạm vi chạy, trả về ngày đầu / cuối đã parse theo timezone tham chiếu.
func (s *ReportService) ValidateRequest(req dto.RunRequest) (time.Time, time.Time, error) {
	if err := global.InitValidator().Struct(req); err != nil {
		return time.Time{}, time.Time{}, common.NewInputError("phạm vi chạy không hợp lệ: %v", err)
	}
	start, err := s.resolver.ParseDay(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, common.NewInputError("startDate không hợp lệ: %v", err)
	}
	end, err := s.resolver.ParseDay(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, common.NewInputError("endDate không hợp lệ: %v", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, common.NewInputError("endDate %s trước startDate %s", req.EndDate, req.StartDate)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxRunDays {
		return time.Time{}, time.Time{}, common.NewInputError("khoảng ngày %d vượt quá %d ngày", days, MaxRunDays)
	}
	return start, end, nil
}

// Run chạy một lần aggregate cho [StartDate, EndDate] × LocationID.
// Luôn trả RunResult; lỗi đầu vào trả về trước khi fetch, lỗi ghi trả *common.PersistenceError.
func (s *ReportService) Run(ctx context.Context, req dto.RunRequest) (*dto.RunResult, error) {
	started := time.Now()
	result := &dto.RunResult{RunID: uuid.NewString(), Status: dto.RunStatusFailed}
	log := logger.WithRun("aggregate", result.RunID)
	perf := logger.GetPerformanceLogger().WithField("runId", result.RunID)
	defer func() {
		result.DurationMs = time.Since(started).Milliseconds()
	}()

	startDay, endDay, err := s.ValidateRequest(req)
	if err != nil {
		result.Message = err.Error()
		log.WithError(err).Warn("📊 [AGGREGATE] Phạm vi chạy không hợp lệ")
		return result, err
	}

	if s.deps.Locker != nil {
		release, err := s.deps.Locker.Acquire(ctx, lockScope(req.LocationID))
		if err != nil {
			result.Message = err.Error()
			log.WithError(err).Warn("📊 [AGGREGATE] Không lấy được khóa chạy")
			return result, err
		}
		defer release()
	}

	log.WithFields(logrus.Fields{
		"startDate":  req.StartDate,
		"endDate":    req.EndDate,
		"locationId": req.LocationID,
	}).Info("📊 [AGGREGATE] Bắt đầu aggregate")

	// Fetch
	stage := time.Now()
	catDocs, err := s.deps.Categories.FindCategories(ctx, req.LocationID)
	if err != nil {
		return s.fail(result, log, "fetch categories", err)
	}
	catalog := NewCategoryCatalog(catDocs, s.opts.CategoryMaxDepth)
	result.CategorySnapshotID = catalog.Version
	log.WithFields(logrus.Fields{
		"categorySnapshotId": catalog.Version,
		"categoryLocations":  catalog.Locations(),
	}).Debug("📊 [AGGREGATE] Đã nạp danh mục")

	from, to := s.FetchWindow(startDay, endDay)
	txs, err := s.deps.Transactions.FindTransactions(ctx, req.LocationID, from, to)
	if err != nil {
		return s.fail(result, log, "fetch transactions", err)
	}
	result.TransactionsRead = len(txs)

	// Cùng window với giao dịch; nhóm ngoài khoảng bị lọc sau khi aggregate
	var shifts []posmodels.PosLaborShift
	if s.deps.Labor != nil {
		shifts, err = s.deps.Labor.FindLaborShifts(ctx, req.LocationID, from, to)
		if err != nil {
			return s.fail(result, log, "fetch labor shifts", err)
		}
	}
	result.LaborShiftsRead = len(shifts)
	perf.WithFields(logrus.Fields{"stage": "fetch", "durationMs": time.Since(stage).Milliseconds()}).Info("📊 [AGGREGATE] stage")

	// Normalize + Group/Aggregate
	stage = time.Now()
	engine := NewEngine(s.resolver, catalog, s.opts.Workers)
	grouped, err := engine.Aggregate(ctx, txs, shifts)
	if err != nil {
		return s.fail(result, log, "aggregate", err)
	}
	s.collectWarnings(result, grouped.Warnings, log)

	// Metrics, lọc ngày ngoài khoảng, dedupe
	aggs := DedupeAggregates(filterRange(grouped.Aggregates(), req.StartDate, req.EndDate, req.LocationID))
	result.RecordsComputed = len(aggs)
	perf.WithFields(logrus.Fields{"stage": "aggregate", "groups": len(aggs), "durationMs": time.Since(stage).Milliseconds()}).Info("📊 [AGGREGATE] stage")

	// Upsert
	stage = time.Now()
	written, err := s.writer.Upsert(ctx, aggs)
	result.RecordsAggregated = written
	perf.WithFields(logrus.Fields{"stage": "upsert", "written": written, "durationMs": time.Since(stage).Milliseconds()}).Info("📊 [AGGREGATE] stage")
	if err != nil {
		if written > 0 {
			result.Status = dto.RunStatusPartial
		}
		result.Message = fmt.Sprintf("Ghi được %d/%d aggregate: %v", written, len(aggs), err)
		logger.GetErrorLogger().WithField("runId", result.RunID).WithError(err).Error("📊 [AGGREGATE] Ghi aggregate thất bại")
		log.WithFields(logrus.Fields{"written": written, "total": len(aggs)}).Warn("📊 [AGGREGATE] Ghi aggregate thất bại, có thể chạy lại toàn bộ khoảng ngày")
		return result, err
	}

	result.Status = dto.RunStatusSuccess
	result.Message = fmt.Sprintf("Đã aggregate %d bản ghi (%d cảnh báo)", written, result.WarningCount)
	log.WithFields(logrus.Fields{
		"recordsAggregated": written,
		"transactionsRead":  result.TransactionsRead,
		"laborShiftsRead":   result.LaborShiftsRead,
		"warnings":          result.WarningCount,
	}).Info("📊 [AGGREGATE] Hoàn tất")
	return result, nil
}

// FetchWindow window đọc dữ liệu nguồn theo date của bản ghi: window working day nới mỗi bên FetchPadding.
// Line được gom theo timestamp của chính nó, working day ngoài khoảng bị bỏ ở filterRange.
func (s *ReportService) FetchWindow(startDay, endDay time.Time) (time.Time, time.Time) {
	from, to := s.resolver.Window(startDay, endDay)
	return from.Add(-s.opts.FetchPadding), to.Add(s.opts.FetchPadding)
}

func (s *ReportService) fail(result *dto.RunResult, log *logrus.Entry, stage string, err error) (*dto.RunResult, error) {
	err = fmt.Errorf("%s: %w", stage, err)
	result.Status = dto.RunStatusFailed
	result.Message = err.Error()
	logger.GetErrorLogger().WithField("runId", result.RunID).WithError(err).Error("📊 [AGGREGATE] Lần chạy thất bại")
	log.WithError(err).Error("📊 [AGGREGATE] Lần chạy thất bại")
	return result, err
}

func (s *ReportService) collectWarnings(result *dto.RunResult, warnings []RecordWarning, log *logrus.Entry) {
	result.WarningCount = len(warnings)
	for i, w := range warnings {
		if i < dto.MaxReportedWarnings {
			result.Warnings = append(result.Warnings, dto.RunWarning{RecordID: w.RecordID, LocationID: w.LocationID, Reason: w.Reason})
		}
		log.WithFields(logrus.Fields{
			"recordId":   w.RecordID,
			"locationId": w.LocationID,
		}).Warn("📊 [AGGREGATE] Bỏ qua bản ghi: " + w.Reason)
	}
}

// filterRange giữ các aggregate có workingDay trong [startDay, endDay] (và đúng location nếu có)
func filterRange(aggs []reportmodels.SalesAggregate, startDay, endDay, locationID string) []reportmodels.SalesAggregate {
	out := aggs[:0]
	for _, a := range aggs {
		if a.WorkingDay < startDay || a.WorkingDay > endDay {
			continue
		}
		if locationID != "" && a.LocationID != locationID {
			continue
		}
		out = append(out, a)
	}
	return out
}

// FindAggregates đọc aggregate đã lưu của một location trong [fromDay, toDay]
func (s *ReportService) FindAggregates(ctx context.Context, locationID, fromDay, toDay string) ([]reportmodels.SalesAggregate, error) {
	if locationID == "" {
		return nil, common.NewInputError("thiếu locationId")
	}
	if _, _, err := s.ValidateRequest(dto.RunRequest{StartDate: fromDay, EndDate: toDay, LocationID: locationID}); err != nil {
		return nil, err
	}
	filter := bson.M{
		"locationId": locationID,
		"workingDay": bson.M{"$gte": fromDay, "$lte": toDay},
	}
	opts := options.Find().SetSort(bson.D{{Key: "workingDay", Value: 1}})
	cursor, err := s.deps.Aggregates.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var list []reportmodels.SalesAggregate
	if err := cursor.All(ctx, &list); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	if list == nil {
		list = []reportmodels.SalesAggregate{}
	}
	return list, nil
}

// IsInputError cho biết lỗi thuộc nhóm lỗi đầu vào
func IsInputError(err error) bool {
	return errors.Is(err, common.ErrInvalidInput)
}
