package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"daily_ops/internal/api/report/dto"
	reportmodels "daily_ops/internal/api/report/models"
	"daily_ops/internal/logger"
)

// DirtyDayProcessor phần của ReportService mà worker cần
type DirtyDayProcessor interface {
	GetUnprocessedDirtyDays(ctx context.Context, limit int) ([]reportmodels.AggregateDirtyDay, error)
	RecomputeDay(ctx context.Context, locationID, workingDay string) (*dto.RunResult, error)
	SetDirtyProcessed(ctx context.Context, d reportmodels.AggregateDirtyDay) error
}

// ReportDirtyWorker worker xử lý report_sales_dirty_days: đọc các working day chưa xử lý (processedAt = null),
// aggregate lại từng ngày rồi đánh dấu processedAt.
// Chạy định kỳ (mặc định 5 phút), mỗi lần xử lý tối đa batchSize bản ghi.
type ReportDirtyWorker struct {
	processor DirtyDayProcessor
	interval  time.Duration // Khoảng thời gian giữa các lần chạy
	batchSize int           // Số bản ghi tối đa mỗi lần (vd: 50)
}

// NewReportDirtyWorker tạo mới ReportDirtyWorker.
// Tham số:
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 5 phút)
//   - batchSize: Số bản ghi tối đa mỗi lần (mặc định: 50)
func NewReportDirtyWorker(processor DirtyDayProcessor, interval time.Duration, batchSize int) *ReportDirtyWorker {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ReportDirtyWorker{
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start chạy worker trong vòng lặp: mỗi interval xử lý một batch dirty days.
func (w *ReportDirtyWorker) Start(ctx context.Context) {
	log := logger.WithModule("dirty_worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(logrus.Fields{
		"interval":  w.interval.String(),
		"batchSize": w.batchSize,
	}).Info("📊 [AGGREGATE_DIRTY] Starting Aggregate Dirty Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("📊 [AGGREGATE_DIRTY] Aggregate Dirty Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithFields(logrus.Fields{
							"panic": r,
						}).Error("📊 [AGGREGATE_DIRTY] Panic khi xử lý dirty days, sẽ tiếp tục ở lần chạy tiếp theo")
					}
				}()
				w.ProcessBatch(ctx)
			}()
		}
	}
}

// ProcessBatch xử lý một batch dirty days, trả về số ngày đã xử lý xong.
// Ngày aggregate lỗi được giữ nguyên (processedAt = null) để thử lại lần sau.
func (w *ReportDirtyWorker) ProcessBatch(ctx context.Context) int {
	log := logger.WithModule("dirty_worker")

	list, err := w.processor.GetUnprocessedDirtyDays(ctx, w.batchSize)
	if err != nil {
		log.WithError(err).Error("📊 [AGGREGATE_DIRTY] Lỗi lấy danh sách dirty days")
		return 0
	}
	if len(list) == 0 {
		return 0
	}

	processed := 0
	for _, d := range list {
		if ctx.Err() != nil {
			break
		}
		res, err := w.processor.RecomputeDay(ctx, d.LocationID, d.WorkingDay)
		if err != nil {
			fields := logrus.Fields{
				"locationId": d.LocationID,
				"workingDay": d.WorkingDay,
			}
			if res != nil {
				fields["runId"] = res.RunID
				fields["status"] = res.Status
			}
			log.WithError(err).WithFields(fields).Warn("📊 [AGGREGATE_DIRTY] Aggregate thất bại, bỏ qua và sẽ thử lại lần sau")
			continue
		}
		if err := w.processor.SetDirtyProcessed(ctx, d); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"locationId": d.LocationID,
				"workingDay": d.WorkingDay,
			}).Warn("📊 [AGGREGATE_DIRTY] SetDirtyProcessed thất bại")
			continue
		}
		processed++
	}

	if processed > 0 {
		log.WithFields(logrus.Fields{
			"processed": processed,
			"total":     len(list),
		}).Info("📊 [AGGREGATE_DIRTY] Đã xử lý dirty days")
	}
	return processed
}
