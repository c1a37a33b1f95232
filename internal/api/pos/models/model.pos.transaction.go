// Package models chứa các document nguồn do sync process ghi vào (read-only với batch aggregate).
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PosTransaction bản ghi giao dịch thô (pos_transactions).
// Payload có nhiều hình dạng: Ticket[] | {Tickets: Ticket[]} | Ticket, field trong ticket/order/line
// xuất hiện với nhiều cách đặt tên (TotalInc / totalInc / TotalIncVat...).
type PosTransaction struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`                                 // MongoDB _id
	LocationID string             `json:"locationId" bson:"locationId" index:"compound:pos_tx_location_date"` // Location (nhà hàng)
	Date       time.Time          `json:"date" bson:"date" index:"compound:pos_tx_location_date"`             // Thời điểm giao dịch / thời điểm sync
	Payload    interface{}        `json:"payload" bson:"payload"`                                             // Ticket data thô
}
