// Package models chứa các model thuộc domain Report (aggregate theo ngày làm việc).
package models

// BreakdownMetrics số liệu chung của một dòng breakdown
type BreakdownMetrics struct {
	TotalRevenue            float64 `json:"totalRevenue" bson:"totalRevenue"`                       // Doanh thu gồm VAT
	TotalRevenueExVat       float64 `json:"totalRevenueExVat" bson:"totalRevenueExVat"`             // Doanh thu chưa VAT
	TotalQuantity           float64 `json:"totalQuantity" bson:"totalQuantity"`                     // Số lượng
	TransactionCount        int64   `json:"transactionCount" bson:"transactionCount"`               // Số ticket phân biệt
	AverageTransactionValue float64 `json:"averageTransactionValue" bson:"averageTransactionValue"` // revenue / transactionCount
	PercentageOfTotal       float64 `json:"percentageOfTotal" bson:"percentageOfTotal"`             // revenue / tổng doanh thu nhóm * 100
}

// KeyBreakdown breakdown theo một khóa chuỗi (payment method, waiter, table, main category)
type KeyBreakdown struct {
	Key              string `json:"key" bson:"key"`
	BreakdownMetrics `bson:",inline"`
}

// HourBreakdown breakdown theo giờ trong ngày (0-23)
type HourBreakdown struct {
	Hour             int `json:"hour" bson:"hour"`
	BreakdownMetrics `bson:",inline"`
}

// WorkerHourBreakdown breakdown theo (waiter, giờ)
type WorkerHourBreakdown struct {
	Waiter           string `json:"waiter" bson:"waiter"`
	Hour             int    `json:"hour" bson:"hour"`
	BreakdownMetrics `bson:",inline"`
}

// DivisionHourBreakdown breakdown theo (division Food/Beverage, giờ)
type DivisionHourBreakdown struct {
	Division         string `json:"division" bson:"division"`
	Hour             int    `json:"hour" bson:"hour"`
	BreakdownMetrics `bson:",inline"`
}

// LaborWorkerBreakdown tổng hợp ca làm theo nhân viên
type LaborWorkerBreakdown struct {
	WorkerID   string  `json:"workerId" bson:"workerId"`
	WorkerName string  `json:"workerName,omitempty" bson:"workerName,omitempty"`
	Hours      float64 `json:"hours" bson:"hours"`
	WageCost   float64 `json:"wageCost" bson:"wageCost"`
	ShiftCount int64   `json:"shiftCount" bson:"shiftCount"`
}

// LaborSummary tổng hợp nhân sự của một ngày làm việc
type LaborSummary struct {
	TotalHours          float64                `json:"totalHours" bson:"totalHours"`
	TotalWageCost       float64                `json:"totalWageCost" bson:"totalWageCost"`
	ShiftCount          int64                  `json:"shiftCount" bson:"shiftCount"`
	WorkerCount         int64                  `json:"workerCount" bson:"workerCount"`
	LaborCostPercentage float64                `json:"laborCostPercentage" bson:"laborCostPercentage"` // wage / revenue ex VAT * 100
	RevenuePerLaborHour float64                `json:"revenuePerLaborHour" bson:"revenuePerLaborHour"` // revenue ex VAT / giờ công
	Workers             []LaborWorkerBreakdown `json:"workers" bson:"workers"`
}

// SalesAggregate kết quả aggregate theo (locationId, workingDay) (report_sales_daily).
// Mỗi lần chạy tính lại toàn bộ và thay thế document cũ tại key, không merge.
type SalesAggregate struct {
	LocationID   string `json:"locationId" bson:"locationId" index:"compound:sales_location_day_unique"`        // Location
	WorkingDay   string `json:"workingDay" bson:"workingDay" index:"compound:sales_location_day_unique"`        // YYYY-MM-DD (đã cắt theo boundary hour)
	BoundaryHour int    `json:"boundaryHour" bson:"boundaryHour"`                                                // Giờ bắt đầu ngày làm việc
	Timezone     string `json:"timezone" bson:"timezone"`                                                        // Timezone cố định dùng để cắt ngày

	TotalQuantity           float64 `json:"totalQuantity" bson:"totalQuantity"`
	TotalRevenue            float64 `json:"totalRevenue" bson:"totalRevenue"`           // Gồm VAT
	TotalRevenueExVat       float64 `json:"totalRevenueExVat" bson:"totalRevenueExVat"` // Chưa VAT
	TotalTransactions       int64   `json:"totalTransactions" bson:"totalTransactions"` // Số ticket phân biệt
	AverageTransactionValue float64 `json:"averageTransactionValue" bson:"averageTransactionValue"`

	PaymentMethodBreakdown  []KeyBreakdown          `json:"paymentMethodBreakdown" bson:"paymentMethodBreakdown"`
	WaiterBreakdown         []KeyBreakdown          `json:"waiterBreakdown" bson:"waiterBreakdown"`
	TableBreakdown          []KeyBreakdown          `json:"tableBreakdown" bson:"tableBreakdown"`
	HourlyBreakdown         []HourBreakdown         `json:"hourlyBreakdown" bson:"hourlyBreakdown"`
	WorkerHourlyBreakdown   []WorkerHourBreakdown   `json:"workerHourlyBreakdown" bson:"workerHourlyBreakdown"`
	DivisionHourlyBreakdown []DivisionHourBreakdown `json:"divisionHourlyBreakdown" bson:"divisionHourlyBreakdown"`
	CategoryBreakdown       []KeyBreakdown          `json:"categoryBreakdown" bson:"categoryBreakdown"` // Theo main category

	Labor LaborSummary `json:"labor" bson:"labor"`

	LineCount  int64 `json:"lineCount" bson:"lineCount"`   // Số line đã cộng (gồm line tổng ticket tổng hợp)
	ComputedAt int64 `json:"computedAt" bson:"computedAt"` // Unix seconds, set lúc ghi. Field duy nhất khác nhau giữa hai lần chạy cùng input
}

// Key trả về natural key (locationId, workingDay)
func (a SalesAggregate) Key() AggregateKey {
	return AggregateKey{LocationID: a.LocationID, WorkingDay: a.WorkingDay}
}

// AggregateKey natural key của aggregate
type AggregateKey struct {
	LocationID string
	WorkingDay string
}
