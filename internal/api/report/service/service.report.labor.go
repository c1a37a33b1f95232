package reportsvc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	posmodels "daily_ops/internal/api/pos/models"
	"daily_ops/internal/common"
	"daily_ops/internal/utility"
)

// NormalizedShift một ca làm đã chuẩn hóa
type NormalizedShift struct {
	RecordID   string
	LocationID string
	WorkerID   string
	WorkerName string
	Start      time.Time // Giờ vào ca, fallback ngày của ca
	DateOnly   bool      // Start chỉ là ngày của ca: working day = chính ngày đó, không cắt theo boundary
	Hours      decimal.Decimal
	WageCost   decimal.Decimal
}

var shiftSpecs = []utility.FieldSpec{
	{Name: "hours", Candidates: []string{"hours_worked", "hoursWorked", "HoursWorked", "hours", "Hours", "total_hours", "totalHours"}, Numeric: true},
	{Name: "wageCost", Candidates: []string{"wage_cost", "wageCost", "WageCost", "costs.wage", "labor_cost", "laborCost", "LaborCost"}, Numeric: true},
	{Name: "start", Candidates: []string{"start_time", "startTime", "StartTime", "clock_in", "clockIn", "start", "Start"}},
	{Name: "end", Candidates: []string{"end_time", "endTime", "EndTime", "clock_out", "clockOut", "end", "End"}},
	{Name: "workerId", Candidates: []string{"worker_id", "workerId", "WorkerId", "employee_id", "employeeId", "EmployeeId", "userId"}},
	{Name: "workerName", Candidates: []string{"worker_name", "workerName", "WorkerName", "employee_name", "employeeName", "EmployeeName", "employee.name", "name"}},
}

// WorkingDayKey working day của ca theo resolver
func (s NormalizedShift) WorkingDayKey(r WorkingDayResolver) string {
	return r.DayKey(s.Start, s.DateOnly)
}

// NormalizeShift chuẩn hóa một ca làm thô.
// Không có giờ công thì tính từ start/end (end trước start = ca qua nửa đêm).
func NormalizeShift(shift posmodels.PosLaborShift, loc *time.Location) (NormalizedShift, error) {
	out := NormalizedShift{
		RecordID:   shift.ID.Hex(),
		LocationID: shift.Location(),
	}
	if out.LocationID == "" {
		return out, fmt.Errorf("ca làm thiếu locationId / environmentId: %w", common.ErrMalformedRecord)
	}

	rec := utility.Normalize(shift.Payload, shiftSpecs)
	out.WorkerID = shift.WorkerID
	if out.WorkerID == "" {
		out.WorkerID = rec.String("workerId")
	}
	out.WorkerName = rec.String("workerName")

	start, hasStart := rec.Time("start", loc)
	end, hasEnd := rec.Time("end", loc)
	switch {
	case hasStart:
		out.Start = start
	case !shift.Date.IsZero():
		out.Start = shift.Date
		out.DateOnly = true
	default:
		return out, fmt.Errorf("ca làm không có ngày / giờ vào ca: %w", common.ErrMalformedRecord)
	}

	if hours, ok := rec.Float("hours"); ok {
		out.Hours = decimal.NewFromFloat(hours)
	} else if hasStart && hasEnd {
		if end.Before(start) {
			end = end.Add(24 * time.Hour)
		}
		out.Hours = decimal.NewFromFloat(end.Sub(start).Hours())
	}
	if out.Hours.IsNegative() {
		return out, fmt.Errorf("giờ công âm (%s): %w", out.Hours.String(), common.ErrMalformedRecord)
	}
	out.WageCost = decimalOf(rec, "wageCost")
	return out, nil
}
