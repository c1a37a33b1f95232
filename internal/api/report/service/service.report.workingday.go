// Package reportsvc chứa engine aggregate doanh thu/nhân sự theo (locationId, workingDay).
package reportsvc

import (
	"fmt"
	"time"
)

// DayLayout định dạng key của working day
const DayLayout = "2006-01-02"

// DefaultReportTimezone timezone tham chiếu cố định để cắt ngày (không dùng timezone của request)
const DefaultReportTimezone = "Europe/Amsterdam"

// WorkingDay trả về ngày làm việc chứa ts: nếu giờ của ts (theo loc) nhỏ hơn boundaryHour
// thì thuộc ngày hôm trước. Kết quả là 00:00 của ngày đó theo loc.
func WorkingDay(ts time.Time, boundaryHour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := ts.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if local.Hour() < boundaryHour {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// WorkingDayResolver gom timezone và boundary hour của một lần chạy
type WorkingDayResolver struct {
	Location     *time.Location
	BoundaryHour int
}

// NewWorkingDayResolver tạo resolver; boundaryHour phải trong 0..23
func NewWorkingDayResolver(timezone string, boundaryHour int) (WorkingDayResolver, error) {
	if boundaryHour < 0 || boundaryHour > 23 {
		return WorkingDayResolver{}, fmt.Errorf("boundaryHour %d ngoài khoảng 0-23", boundaryHour)
	}
	if timezone == "" {
		timezone = DefaultReportTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return WorkingDayResolver{}, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	return WorkingDayResolver{Location: loc, BoundaryHour: boundaryHour}, nil
}

// Resolve trả về ngày làm việc (00:00 theo timezone tham chiếu)
func (r WorkingDayResolver) Resolve(ts time.Time) time.Time {
	return WorkingDay(ts, r.BoundaryHour, r.Location)
}

// Key trả về working day dạng YYYY-MM-DD
func (r WorkingDayResolver) Key(ts time.Time) string {
	return r.Resolve(ts).Format(DayLayout)
}

// DayKey working day của ts. dateOnly = ts chỉ mang ngày (không có giờ): lấy chính ngày lịch đó,
// không cắt theo boundary.
func (r WorkingDayResolver) DayKey(ts time.Time, dateOnly bool) string {
	if dateOnly {
		return r.CalendarKey(ts)
	}
	return r.Key(ts)
}

// CalendarKey ngày lịch của một giá trị chỉ có ngày. Giá trị 00:00 UTC (BSON date) mà không phải
// 00:00 theo timezone tham chiếu thì lấy ngày UTC.
func (r WorkingDayResolver) CalendarKey(ts time.Time) string {
	local := ts.In(r.loc())
	if !isMidnight(local) && isMidnight(ts.UTC()) {
		return ts.UTC().Format(DayLayout)
	}
	return local.Format(DayLayout)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// Hour trả về giờ trong ngày của ts theo timezone tham chiếu
func (r WorkingDayResolver) Hour(ts time.Time) int {
	return ts.In(r.loc()).Hour()
}

// ParseDay parse key YYYY-MM-DD thành 00:00 theo timezone tham chiếu
func (r WorkingDayResolver) ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, r.loc())
}

// Window trả về khoảng thời gian [from, to) của các working day từ startDay đến endDay:
// from = startDay + boundary, to = endDay + 1 ngày + boundary.
func (r WorkingDayResolver) Window(startDay, endDay time.Time) (time.Time, time.Time) {
	loc := r.loc()
	from := time.Date(startDay.Year(), startDay.Month(), startDay.Day(), r.BoundaryHour, 0, 0, 0, loc)
	next := endDay.AddDate(0, 0, 1)
	to := time.Date(next.Year(), next.Month(), next.Day(), r.BoundaryHour, 0, 0, 0, loc)
	return from, to
}

func (r WorkingDayResolver) loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
