package reportsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"daily_ops/internal/api/report/dto"
	reportmodels "daily_ops/internal/api/report/models"
	"daily_ops/internal/common"
	"daily_ops/internal/logger"
)

// MarkDirty đánh dấu working day chứa ts của location cần tính lại (vd: sync process ghi giao dịch trễ).
// Đánh dấu lại một ngày đã xử lý sẽ xóa processedAt. Mỗi lần đánh dấu tăng markVersion.
func (s *ReportService) MarkDirty(ctx context.Context, locationID string, ts time.Time) error {
	if locationID == "" {
		return common.NewInputError("thiếu locationId")
	}
	if s.deps.DirtyDays == nil {
		return fmt.Errorf("chưa cấu hình collection dirty days: %w", common.ErrNotFound)
	}
	filter := bson.M{
		"locationId": locationID,
		"workingDay": s.resolver.Key(ts),
	}
	update := bson.M{
		"$set": bson.M{"markedAt": s.now().UnixMilli(), "processedAt": nil},
		"$inc": bson.M{"markVersion": int64(1)},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.deps.DirtyDays.UpdateOne(ctx, filter, update, opts)
	return common.ConvertMongoError(err)
}

// GetUnprocessedDirtyDays lấy tối đa limit ngày chưa xử lý (processedAt = null), cũ nhất trước
func (s *ReportService) GetUnprocessedDirtyDays(ctx context.Context, limit int) ([]reportmodels.AggregateDirtyDay, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{"processedAt": nil}
	opts := options.Find().SetSort(bson.D{{Key: "markedAt", Value: 1}}).SetLimit(int64(limit))
	cursor, err := s.deps.DirtyDays.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var list []reportmodels.AggregateDirtyDay
	if err := cursor.All(ctx, &list); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	if list == nil {
		list = []reportmodels.AggregateDirtyDay{}
	}
	return list, nil
}

// SetDirtyProcessed đánh dấu đã xử lý. Chỉ khớp đúng markVersion đã đọc
// để lần đánh dấu đến trong lúc đang tính lại (kể cả cùng một giây) không bị nuốt mất.
func (s *ReportService) SetDirtyProcessed(ctx context.Context, d reportmodels.AggregateDirtyDay) error {
	filter := bson.M{
		"locationId":  d.LocationID,
		"workingDay":  d.WorkingDay,
		"markVersion": d.MarkVersion,
	}
	update := bson.M{"$set": bson.M{"processedAt": s.now().UnixMilli()}}
	res, err := s.deps.DirtyDays.UpdateOne(ctx, filter, update)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if res != nil && res.MatchedCount == 0 {
		logger.WithModule("aggregate").WithFields(logrus.Fields{
			"locationId":  d.LocationID,
			"workingDay":  d.WorkingDay,
			"markVersion": d.MarkVersion,
		}).Debug("📊 [AGGREGATE_DIRTY] Ngày đã được đánh dấu lại, giữ trạng thái chờ")
	}
	return nil
}

// RecomputeDay aggregate lại một working day của một location
func (s *ReportService) RecomputeDay(ctx context.Context, locationID, workingDay string) (*dto.RunResult, error) {
	return s.Run(ctx, dto.RunRequest{StartDate: workingDay, EndDate: workingDay, LocationID: locationID})
}
