package reportsvc

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reportmodels "daily_ops/internal/api/report/models"
	"daily_ops/internal/common"
)

// DefaultWriteBatchSize số upsert mỗi lần BulkWrite
const DefaultWriteBatchSize = 500

// bulkWriter phần của *mongo.Collection mà writer cần
type bulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// AggregateWriter ghi aggregate bằng ReplaceOne upsert theo (locationId, workingDay)
type AggregateWriter struct {
	coll      bulkWriter
	batchSize int
	now       func() time.Time
}

// NewAggregateWriter tạo writer; batchSize <= 0 dùng DefaultWriteBatchSize
func NewAggregateWriter(coll bulkWriter, batchSize int) *AggregateWriter {
	if batchSize <= 0 {
		batchSize = DefaultWriteBatchSize
	}
	return &AggregateWriter{coll: coll, batchSize: batchSize, now: time.Now}
}

// DedupeAggregates loại trùng theo natural key, bản sau thắng.
// Thứ tự kết quả theo lần xuất hiện đầu tiên của mỗi key.
func DedupeAggregates(aggs []reportmodels.SalesAggregate) []reportmodels.SalesAggregate {
	index := make(map[reportmodels.AggregateKey]int, len(aggs))
	out := make([]reportmodels.SalesAggregate, 0, len(aggs))
	for _, a := range aggs {
		if i, ok := index[a.Key()]; ok {
			out[i] = a
			continue
		}
		index[a.Key()] = len(out)
		out = append(out, a)
	}
	return out
}

// Upsert loại trùng rồi ghi từng lô bằng BulkWrite (unordered): mỗi key một ReplaceOne upsert,
// thay toàn bộ document cũ. Lỗi trả về *common.PersistenceError kèm số key đã ghi.
func (w *AggregateWriter) Upsert(ctx context.Context, aggs []reportmodels.SalesAggregate) (int, error) {
	unique := DedupeAggregates(aggs)
	if len(unique) == 0 {
		return 0, nil
	}
	computedAt := w.now().Unix()

	written := 0
	for from := 0; from < len(unique); from += w.batchSize {
		to := min(from+w.batchSize, len(unique))
		models := make([]mongo.WriteModel, 0, to-from)
		for _, a := range unique[from:to] {
			a.ComputedAt = computedAt
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"locationId": a.LocationID, "workingDay": a.WorkingDay}).
				SetReplacement(a).
				SetUpsert(true))
		}

		res, err := w.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			written += partialWritten(res, err, len(models))
			return written, &common.PersistenceError{Written: written, Err: common.ConvertMongoError(err)}
		}
		written += len(models)
	}
	return written, nil
}

// partialWritten số model trong lô đã ghi được khi BulkWrite lỗi
func partialWritten(res *mongo.BulkWriteResult, err error, batch int) int {
	if res != nil && (res.MatchedCount > 0 || res.UpsertedCount > 0) {
		return int(res.MatchedCount + res.UpsertedCount)
	}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) && bulkErr.WriteConcernError == nil && len(bulkErr.WriteErrors) > 0 {
		return max(batch-len(bulkErr.WriteErrors), 0)
	}
	return 0
}
