// Package models - AggregateDirtyDay thuộc domain Report.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AggregateDirtyDay đánh dấu working day cần tính lại (report_sales_dirty_days)
type AggregateDirtyDay struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`                                                                // MongoDB _id
	LocationID  string             `json:"locationId" bson:"locationId" index:"compound:dirty_location_day_unique"`                          // Location
	WorkingDay  string             `json:"workingDay" bson:"workingDay" index:"compound:dirty_location_day_unique"`                          // Vd: 2024-03-01
	MarkedAt    int64              `json:"markedAt" bson:"markedAt" index:"compound:dirty_worker_marked,order:1"`                            // Unix milliseconds, worker sort theo field này
	MarkVersion int64              `json:"markVersion" bson:"markVersion"`                                                                   // Tăng 1 mỗi lần đánh dấu
	ProcessedAt *int64             `json:"processedAt,omitempty" bson:"processedAt,omitempty" index:"single:1,compound:dirty_worker_marked"` // Unix milliseconds, null = chưa xử lý
}
