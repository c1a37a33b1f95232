package reportsvc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	posmodels "daily_ops/internal/api/pos/models"
	"daily_ops/internal/common"
	"daily_ops/internal/utility"
)

// SyntheticLineName tên line tổng hợp khi ticket không có line nào
const SyntheticLineName = "Ticket total"

// NormalizedLine một dòng bán hàng đã chuẩn hóa (không lưu DB)
type NormalizedLine struct {
	RecordID      string
	LocationID    string
	TicketKey     string // locationId|ticketId, dùng đếm ticket phân biệt
	ProductName   string
	Category      string // Leaf category như trên line ("" nếu không có)
	Quantity      decimal.Decimal
	RevenueExVat  decimal.Decimal
	RevenueIncVat decimal.Decimal
	PaymentMethod string
	Waiter        string
	Table         string
	Timestamp     time.Time
	DateOnly      bool // Timestamp chỉ có ngày: working day = chính ngày đó
	Synthetic     bool
}

// WorkingDayKey working day của line theo resolver
func (l NormalizedLine) WorkingDayKey(r WorkingDayResolver) string {
	return r.DayKey(l.Timestamp, l.DateOnly)
}

// payloadShape các hình dạng payload được chấp nhận
type payloadShape int

const (
	shapeInvalid payloadShape = iota
	shapeTicketList
	shapeWrappedTickets
	shapeSingleTicket
)

// ticketPayload payload đã quy về danh sách ticket.
// wrapper là object bọc ngoài (shapeWrappedTickets), field của nó là ngữ cảnh record-level.
type ticketPayload struct {
	shape   payloadShape
	tickets []interface{}
	wrapper map[string]interface{}
}

var ticketListKeys = []string{"Tickets", "tickets", "TicketList", "ticketList"}

// resolvePayload quy payload về danh sách ticket
func resolvePayload(payload interface{}) ticketPayload {
	if list, ok := utility.AsSlice(payload); ok {
		return ticketPayload{shape: shapeTicketList, tickets: list}
	}
	doc, ok := utility.AsMap(payload)
	if !ok {
		return ticketPayload{shape: shapeInvalid}
	}
	for _, key := range ticketListKeys {
		if raw, exists := doc[key]; exists {
			if list, ok := utility.AsSlice(raw); ok {
				return ticketPayload{shape: shapeWrappedTickets, tickets: list, wrapper: doc}
			}
			if single, ok := utility.AsMap(raw); ok {
				return ticketPayload{shape: shapeWrappedTickets, tickets: []interface{}{single}, wrapper: doc}
			}
		}
	}
	return ticketPayload{shape: shapeSingleTicket, tickets: []interface{}{doc}}
}

// contextSpecs field có thể nằm ở line, order, ticket hoặc record (ưu tiên theo thứ tự đó)
var contextSpecs = []utility.FieldSpec{
	{Name: "paymentMethod", Candidates: []string{"PaymentMethod", "paymentMethod", "payment_method", "PaymentType", "paymentType", "PaymentMethodName", "paymentMethodName"}},
	{Name: "waiter", Candidates: []string{"WaiterName", "waiterName", "Waiter.Name", "waiter.name", "Waiter", "waiter", "EmployeeName", "employeeName", "Employee.Name", "employee.name", "UserName", "userName"}},
	{Name: "table", Candidates: []string{"TableNumber", "tableNumber", "Table.Number", "table.number", "TableName", "tableName", "Table", "table"}},
	{Name: "timestamp", Candidates: []string{"Timestamp", "timestamp", "CloseTime", "closeTime", "ClosedAt", "closedAt", "Time", "time", "Date", "date", "CreatedAt", "createdAt", "OpenTime", "openTime"}},
}

var ticketSpecs = append([]utility.FieldSpec{
	{Name: "ticketId", Candidates: []string{"TicketId", "ticketId", "TicketID", "ticketID", "TicketNumber", "ticketNumber", "Id", "id", "_id"}},
	{Name: "totalInc", Candidates: []string{"TotalInc", "totalInc", "TotalIncVat", "totalIncVat", "TotalAmount", "totalAmount", "Total", "total"}, Numeric: true},
	{Name: "totalEx", Candidates: []string{"TotalEx", "totalEx", "TotalExVat", "totalExVat", "TotalExcl", "totalExcl"}, Numeric: true},
	{Name: "vat", Candidates: []string{"VatAmount", "vatAmount", "TotalVat", "totalVat", "Vat", "vat"}, Numeric: true},
}, contextSpecs...)

var orderSpecs = contextSpecs

var lineSpecs = append([]utility.FieldSpec{
	{Name: "productName", Candidates: []string{"ProductName", "productName", "Product.Name", "product.name", "Name", "name", "Description", "description"}},
	{Name: "category", Candidates: []string{"ProductGroupName", "productGroupName", "Product.GroupName", "product.groupName", "GroupName", "groupName", "CategoryName", "categoryName", "Category", "category"}},
	{Name: "quantity", Candidates: []string{"Quantity", "quantity", "Qty", "qty", "Count", "count"}, Numeric: true},
	{Name: "totalInc", Candidates: []string{"TotalInc", "totalInc", "TotalIncVat", "totalIncVat", "Total", "total"}, Numeric: true},
	{Name: "totalEx", Candidates: []string{"TotalEx", "totalEx", "TotalExVat", "totalExVat", "TotalExcl", "totalExcl"}, Numeric: true},
	{Name: "vat", Candidates: []string{"VatAmount", "vatAmount", "Vat", "vat"}, Numeric: true},
	{Name: "unitPrice", Candidates: []string{"Price", "price", "UnitPrice", "unitPrice", "PriceInc", "priceInc"}, Numeric: true},
}, contextSpecs...)

var paymentEntrySpecs = []utility.FieldSpec{
	{Name: "method", Candidates: []string{"PaymentMethod", "paymentMethod", "Method", "method", "Name", "name", "Type", "type"}},
}

var (
	orderListKeys = []string{"Orders", "orders"}
	lineListKeys  = []string{"Lines", "lines", "Items", "items", "OrderLines", "orderLines"}
	paymentKeys   = []string{"Payments", "payments"}
)

// dateOnlyFlag đánh dấu timestamp record-level lấy từ date của bản ghi và chỉ mang ngày
const dateOnlyFlag = "_timestampDateOnly"

// lineContext chuỗi record từ trong ra ngoài: line → order → ticket → record
type lineContext []utility.Record

func (c lineContext) text(name string) string {
	for _, rec := range c {
		if rec == nil {
			continue
		}
		if s := rec.String(name); s != "" {
			return s
		}
	}
	return ""
}

// time trả về thời điểm đầu tiên theo chuỗi, kèm cờ chỉ-có-ngày
func (c lineContext) time(name string, loc *time.Location) (ts time.Time, dateOnly bool, ok bool) {
	for _, rec := range c {
		if rec == nil {
			continue
		}
		if t, found := rec.Time(name, loc); found {
			flagged, _ := rec[dateOnlyFlag].(bool)
			return t, flagged || utility.IsDateOnly(rec[name]), true
		}
	}
	return time.Time{}, false, false
}

// ExpandTransaction chuyển một bản ghi giao dịch thô thành danh sách line đã chuẩn hóa.
// Lỗi trả về luôn wrap common.ErrMalformedRecord; caller ghi cảnh báo và bỏ qua bản ghi.
func ExpandTransaction(tx posmodels.PosTransaction, loc *time.Location) ([]NormalizedLine, error) {
	if loc == nil {
		loc = time.UTC
	}
	recordID := tx.ID.Hex()
	if tx.LocationID == "" {
		return nil, fmt.Errorf("thiếu locationId: %w", common.ErrMalformedRecord)
	}
	p := resolvePayload(tx.Payload)
	if p.shape == shapeInvalid {
		return nil, fmt.Errorf("payload không phải ticket / danh sách ticket: %w", common.ErrMalformedRecord)
	}
	if len(p.tickets) == 0 {
		return nil, fmt.Errorf("payload không có ticket: %w", common.ErrMalformedRecord)
	}

	var recordCtx utility.Record
	if p.wrapper != nil {
		recordCtx = utility.Normalize(p.wrapper, contextSpecs)
	}
	if !tx.Date.IsZero() {
		if recordCtx == nil {
			recordCtx = utility.Record{}
		}
		if !recordCtx.Has("timestamp") {
			recordCtx["timestamp"] = tx.Date
			// date 00:00 là ngày kinh doanh của bản ghi, không phải thời điểm bán
			if isMidnight(tx.Date.In(loc)) || isMidnight(tx.Date.UTC()) {
				recordCtx[dateOnlyFlag] = true
			}
		}
	}

	var lines []NormalizedLine
	for i, raw := range p.tickets {
		ticket, ok := utility.AsMap(raw)
		if !ok {
			return nil, fmt.Errorf("ticket #%d không phải document: %w", i, common.ErrMalformedRecord)
		}
		ticketLines, err := expandTicket(tx.LocationID, recordID, i, ticket, recordCtx, loc)
		if err != nil {
			return nil, err
		}
		lines = append(lines, ticketLines...)
	}
	return lines, nil
}

func expandTicket(locationID, recordID string, index int, ticket map[string]interface{}, recordCtx utility.Record, loc *time.Location) ([]NormalizedLine, error) {
	ticketRec := utility.Normalize(ticket, ticketSpecs)
	if !ticketRec.Has("paymentMethod") {
		if method := firstPaymentMethod(ticket); method != "" {
			ticketRec["paymentMethod"] = method
		}
	}

	ticketID := ticketRec.String("ticketId")
	if ticketID == "" {
		ticketID = recordID + "#" + strconv.Itoa(index)
	}
	ticketKey := locationID + "|" + ticketID

	var lines []NormalizedLine
	build := func(lineRaw map[string]interface{}, orderRec utility.Record) error {
		lineRec := utility.Normalize(lineRaw, lineSpecs)
		chain := lineContext{lineRec, orderRec, ticketRec, recordCtx}
		ts, dateOnly, ok := chain.time("timestamp", loc)
		if !ok {
			return fmt.Errorf("ticket %s không có thời điểm: %w", ticketID, common.ErrMalformedRecord)
		}
		qty := decimalOf(lineRec, "quantity")
		inc, ex := revenuePair(lineRec)
		if lineRec["totalInc"] == nil && lineRec["totalEx"] == nil {
			if price, ok := lineRec.Float("unitPrice"); ok {
				inc = decimal.NewFromFloat(price).Mul(qty)
				ex = inc
				if vat, ok := lineRec.Float("vat"); ok {
					ex = inc.Sub(decimal.NewFromFloat(vat))
				}
			}
		}
		lines = append(lines, NormalizedLine{
			RecordID:      recordID,
			LocationID:    locationID,
			TicketKey:     ticketKey,
			ProductName:   lineRec.String("productName"),
			Category:      lineRec.String("category"),
			Quantity:      qty,
			RevenueExVat:  ex,
			RevenueIncVat: inc,
			PaymentMethod: chain.text("paymentMethod"),
			Waiter:        chain.text("waiter"),
			Table:         chain.text("table"),
			Timestamp:     ts,
			DateOnly:      dateOnly,
		})
		return nil
	}

	for _, orderRaw := range listAt(ticket, orderListKeys) {
		order, ok := utility.AsMap(orderRaw)
		if !ok {
			continue
		}
		orderRec := utility.Normalize(order, orderSpecs)
		for _, lineRaw := range listAt(order, lineListKeys) {
			if line, ok := utility.AsMap(lineRaw); ok {
				if err := build(line, orderRec); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, lineRaw := range listAt(ticket, lineListKeys) {
		if line, ok := utility.AsMap(lineRaw); ok {
			if err := build(line, nil); err != nil {
				return nil, err
			}
		}
	}

	if len(lines) > 0 {
		return lines, nil
	}

	// Ticket không có line: một line tổng hợp từ tổng ticket
	chain := lineContext{ticketRec, recordCtx}
	ts, dateOnly, ok := chain.time("timestamp", loc)
	if !ok {
		return nil, fmt.Errorf("ticket %s không có thời điểm: %w", ticketID, common.ErrMalformedRecord)
	}
	inc, ex := revenuePair(ticketRec)
	return []NormalizedLine{{
		RecordID:      recordID,
		LocationID:    locationID,
		TicketKey:     ticketKey,
		ProductName:   SyntheticLineName,
		Quantity:      decimal.Zero,
		RevenueExVat:  ex,
		RevenueIncVat: inc,
		PaymentMethod: chain.text("paymentMethod"),
		Waiter:        chain.text("waiter"),
		Table:         chain.text("table"),
		Timestamp:     ts,
		DateOnly:      dateOnly,
		Synthetic:     true,
	}}, nil
}

// revenuePair lấy (gồm VAT, chưa VAT). Thiếu một trong hai thì suy ra từ cái còn lại và VatAmount,
// không có VatAmount thì coi VAT = 0. Thiếu cả hai → 0.
func revenuePair(rec utility.Record) (decimal.Decimal, decimal.Decimal) {
	inc, hasInc := rec.Float("totalInc")
	ex, hasEx := rec.Float("totalEx")
	vat, hasVat := rec.Float("vat")
	switch {
	case hasInc && hasEx:
		return decimal.NewFromFloat(inc), decimal.NewFromFloat(ex)
	case hasInc:
		d := decimal.NewFromFloat(inc)
		if hasVat {
			return d, d.Sub(decimal.NewFromFloat(vat))
		}
		return d, d
	case hasEx:
		d := decimal.NewFromFloat(ex)
		if hasVat {
			return d.Add(decimal.NewFromFloat(vat)), d
		}
		return d, d
	default:
		return decimal.Zero, decimal.Zero
	}
}

func decimalOf(rec utility.Record, name string) decimal.Decimal {
	if f, ok := rec.Float(name); ok {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}

func listAt(doc map[string]interface{}, keys []string) []interface{} {
	for _, k := range keys {
		if raw, ok := doc[k]; ok {
			if list, ok := utility.AsSlice(raw); ok {
				return list
			}
		}
	}
	return nil
}

// firstPaymentMethod lấy phương thức của payment đầu tiên trong Payments[]
func firstPaymentMethod(ticket map[string]interface{}) string {
	for _, raw := range listAt(ticket, paymentKeys) {
		rec := utility.Normalize(raw, paymentEntrySpecs)
		if m := rec.String("method"); m != "" {
			return m
		}
	}
	return ""
}
