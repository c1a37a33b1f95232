package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PosLaborShift bản ghi ca làm việc thô (pos_labor_shifts).
// Một số nguồn dùng environmentId thay cho locationId.
type PosLaborShift struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	LocationID    string             `json:"locationId,omitempty" bson:"locationId,omitempty"`       // Location
	EnvironmentID string             `json:"environmentId,omitempty" bson:"environmentId,omitempty"` // Tên khác của location ở nguồn labor
	Date          time.Time          `json:"date" bson:"date"`                                       // Ngày của ca
	WorkerID      string             `json:"workerId" bson:"workerId"`                               // Nhân viên
	Payload       interface{}        `json:"payload" bson:"payload"`                                 // hours_worked/hours/total_hours, wage_cost/costs.wage/labor_cost...
}

// Location trả về locationId, fallback environmentId
func (s PosLaborShift) Location() string {
	if s.LocationID != "" {
		return s.LocationID
	}
	return s.EnvironmentID
}
