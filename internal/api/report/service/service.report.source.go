package reportsvc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	posmodels "daily_ops/internal/api/pos/models"
	"daily_ops/internal/common"
	"daily_ops/internal/global"
	"daily_ops/internal/utility"
)

// TransactionSource đọc giao dịch thô theo (locationId?, [from, to))
type TransactionSource interface {
	FindTransactions(ctx context.Context, locationID string, from, to time.Time) ([]posmodels.PosTransaction, error)
}

// LaborSource đọc ca làm thô theo (locationId/environmentId?, [from, to))
type LaborSource interface {
	FindLaborShifts(ctx context.Context, locationID string, from, to time.Time) ([]posmodels.PosLaborShift, error)
}

// CategorySource đọc bảng danh mục theo locationId ("" = mọi location)
type CategorySource interface {
	FindCategories(ctx context.Context, locationID string) ([]posmodels.PosCategory, error)
}

// PosSource đọc dữ liệu nguồn từ các collection do sync process ghi
type PosSource struct {
	txColl    *mongo.Collection
	laborColl *mongo.Collection
	catColl   *mongo.Collection
}

// NewPosSource lấy các collection nguồn từ registry
func NewPosSource() (*PosSource, error) {
	txColl, err := global.RegistryCollections.MustGet(global.MongoDB_ColNames.PosTransactions)
	if err != nil {
		return nil, err
	}
	laborColl, err := global.RegistryCollections.MustGet(global.MongoDB_ColNames.PosLaborShifts)
	if err != nil {
		return nil, err
	}
	catColl, err := global.RegistryCollections.MustGet(global.MongoDB_ColNames.PosCategories)
	if err != nil {
		return nil, err
	}
	return &PosSource{txColl: txColl, laborColl: laborColl, catColl: catColl}, nil
}

// FindTransactions đọc giao dịch có date trong [from, to)
func (s *PosSource) FindTransactions(ctx context.Context, locationID string, from, to time.Time) ([]posmodels.PosTransaction, error) {
	filter := bson.M{"date": bson.M{"$gte": from, "$lt": to}}
	if locationID != "" {
		filter["locationId"] = locationID
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.txColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", common.ConvertMongoError(err))
	}
	defer cursor.Close(ctx)

	var list []posmodels.PosTransaction
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", common.ConvertMongoError(err))
	}
	return list, nil
}

// FindLaborShifts đọc ca làm có date trong [from, to). Nguồn labor có thể dùng environmentId thay locationId.
func (s *PosSource) FindLaborShifts(ctx context.Context, locationID string, from, to time.Time) ([]posmodels.PosLaborShift, error) {
	filter := bson.M{"date": bson.M{"$gte": from, "$lt": to}}
	if locationID != "" {
		filter["$or"] = bson.A{
			bson.M{"locationId": locationID},
			bson.M{"environmentId": locationID},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.laborColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find labor shifts: %w", common.ConvertMongoError(err))
	}
	defer cursor.Close(ctx)

	var list []posmodels.PosLaborShift
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode labor shifts: %w", common.ConvertMongoError(err))
	}
	return list, nil
}

// FindCategories đọc bảng danh mục. Document giữ dạng thô để chuẩn hóa bằng accessor table.
// Lọc theo location vẫn lấy kèm danh mục dùng chung (không có locationId).
func (s *PosSource) FindCategories(ctx context.Context, locationID string) ([]posmodels.PosCategory, error) {
	filter := bson.M{}
	if locationID != "" {
		filter["locationId"] = bson.M{"$in": bson.A{locationID, "", nil}}
	}
	cursor, err := s.catColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", common.ConvertMongoError(err))
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode categories: %w", common.ConvertMongoError(err))
	}
	list := make([]posmodels.PosCategory, 0, len(raw))
	for _, doc := range raw {
		if m, ok := utility.AsMap(doc); ok {
			list = append(list, posmodels.PosCategory(m))
		}
	}
	return list, nil
}
