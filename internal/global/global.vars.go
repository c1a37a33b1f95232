package global

import (
	"daily_ops/config"
	"daily_ops/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection dùng bởi batch aggregate
type MongoDB_CollectionName struct {
	PosTransactions string // Raw ticket/order/line từ sync process (read-only)
	PosLaborShifts  string // Raw shift nhân sự (read-only)
	PosCategories   string // Bảng danh mục sản phẩm theo location (read-only)
	SalesAggregates string // Aggregate theo (locationId, workingDay)
	DirtyDays       string // Đánh dấu working day cần tính lại
}

// Các biến toàn cục
var Validate *validator.Validate               // Validator dùng chung cho dto
var MongoDB_ServerConfig *config.Configuration // Cấu hình server
var MongoDB_Session *mongo.Client              // Client MongoDB
var MongoDB_ColNames MongoDB_CollectionName    // Tên các collection

// RegistryCollections registry các collection đã mở
var RegistryCollections = registry.NewRegistry[*mongo.Collection]()
