package dto

// RunRequest phạm vi một lần aggregate: [StartDate, EndDate] (working day) × LocationID (optional)
type RunRequest struct {
	StartDate  string `json:"startDate" validate:"required,datetime=2006-01-02"`  // Working day đầu (YYYY-MM-DD)
	EndDate    string `json:"endDate" validate:"required,datetime=2006-01-02"`    // Working day cuối, tính cả ngày này
	LocationID string `json:"locationId,omitempty" validate:"omitempty,max=128"` // Rỗng = mọi location
}

// RunWarning cảnh báo bản ghi nguồn bị bỏ qua
type RunWarning struct {
	RecordID   string `json:"recordId"`
	LocationID string `json:"locationId,omitempty"`
	Reason     string `json:"reason"`
}

// Trạng thái một lần chạy
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial" // Ghi được một phần, chạy lại toàn bộ khoảng ngày là an toàn
	RunStatusFailed  = "failed"
)

// RunResult kết quả trả về cho trigger (HTTP handler, CLI, scheduler)
type RunResult struct {
	RunID              string       `json:"runId"`
	Status             string       `json:"status"`
	RecordsAggregated  int          `json:"recordsAggregated"`  // Số aggregate đã upsert
	RecordsComputed    int          `json:"recordsComputed"`    // Số aggregate tính được (sau dedupe)
	TransactionsRead   int          `json:"transactionsRead"`   // Số bản ghi giao dịch đã fetch
	LaborShiftsRead    int          `json:"laborShiftsRead"`    // Số ca làm đã fetch
	WarningCount       int          `json:"warningCount"`       // Tổng số cảnh báo
	Warnings           []RunWarning `json:"warnings,omitempty"` // Tối đa MaxReportedWarnings
	Message            string       `json:"message"`
	DurationMs         int64        `json:"durationMs"`
	CategorySnapshotID string       `json:"categorySnapshotId,omitempty"`
}

// MaxReportedWarnings số cảnh báo tối đa trả về trong RunResult
const MaxReportedWarnings = 50
