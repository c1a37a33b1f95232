package reportsvc

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"daily_ops/internal/common"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolvePayloadShapes(t *testing.T) {
	tk := map[string]interface{}{"TicketId": "1"}

	p := resolvePayload([]interface{}{tk, tk})
	assert.Equal(t, shapeTicketList, p.shape)
	assert.Len(t, p.tickets, 2)

	p = resolvePayload(map[string]interface{}{"Tickets": []interface{}{tk}, "Waiter": "Eva"})
	assert.Equal(t, shapeWrappedTickets, p.shape)
	assert.Len(t, p.tickets, 1)
	assert.Equal(t, "Eva", p.wrapper["Waiter"])

	p = resolvePayload(bson.D{{Key: "tickets", Value: bson.A{bson.D{{Key: "TicketId", Value: "9"}}}}})
	assert.Equal(t, shapeWrappedTickets, p.shape)

	p = resolvePayload(tk)
	assert.Equal(t, shapeSingleTicket, p.shape)

	assert.Equal(t, shapeInvalid, resolvePayload(nil).shape)
	assert.Equal(t, shapeInvalid, resolvePayload(12).shape)
}

func TestExpandTransactionFieldSynonyms(t *testing.T) {
	ts := at("2024-03-01", 19, 5)
	tx := txOf("L", ts, map[string]interface{}{
		"ticketId":      "A-1",
		"closeTime":     "2024-03-01T19:05:00",
		"paymentMethod": "pin",
		"Table":         map[string]interface{}{"Number": 7},
		"orders": []interface{}{
			map[string]interface{}{
				"waiterName": "Joost",
				"items": []interface{}{
					map[string]interface{}{"name": "Cola", "groupName": "Fris", "qty": "2", "totalIncVat": "5,00", "totalExVat": 4.13},
					map[string]interface{}{"ProductName": "Tosti", "Category": "Lunch", "Quantity": 1, "TotalEx": 5, "VatAmount": 0.45, "Waiter": "Eva"},
				},
			},
		},
	})

	lines, err := ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	cola := lines[0]
	assert.Equal(t, "L|A-1", cola.TicketKey)
	assert.Equal(t, "Cola", cola.ProductName)
	assert.Equal(t, "Fris", cola.Category)
	assert.True(t, dec("2").Equal(cola.Quantity))
	assert.True(t, dec("5").Equal(cola.RevenueIncVat))
	assert.True(t, dec("4.13").Equal(cola.RevenueExVat))
	assert.Equal(t, "pin", cola.PaymentMethod)
	assert.Equal(t, "Joost", cola.Waiter, "waiter của order")
	assert.Equal(t, "7", cola.Table, "table của ticket")
	assert.True(t, ts.Equal(cola.Timestamp))

	tosti := lines[1]
	assert.Equal(t, "Eva", tosti.Waiter, "line thắng order")
	assert.True(t, dec("5.45").Equal(tosti.RevenueIncVat), "inc = ex + vat")
	assert.True(t, dec("5").Equal(tosti.RevenueExVat))
}

func TestExpandTransactionDirectLinesAndRecordContext(t *testing.T) {
	date := at("2024-03-01", 13, 0)
	tx := txOf("L", date, map[string]interface{}{
		"Tickets": []interface{}{
			map[string]interface{}{
				"Id":    "5",
				"Lines": []interface{}{map[string]interface{}{"Name": "Soep", "Price": 4.5, "Quantity": 2}},
			},
		},
		"PaymentMethod": "card",
	})
	lines, err := ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "card", lines[0].PaymentMethod, "field của object bọc ngoài")
	assert.True(t, date.Equal(lines[0].Timestamp), "thời điểm của record")
	assert.True(t, dec("9").Equal(lines[0].RevenueIncVat), "price × quantity")
	assert.Equal(t, "", lines[0].Category)
}

func TestExpandTransactionSyntheticLine(t *testing.T) {
	tx := txOf("L", at("2024-03-01", 20, 0), []interface{}{
		map[string]interface{}{
			"TicketNumber": 33,
			"Timestamp":    at("2024-03-01", 21, 0),
			"TotalInc":     60.5,
			"VatAmount":    5.5,
			"Payments":     []interface{}{map[string]interface{}{"Method": "cash", "Amount": 60.5}},
		},
	})
	lines, err := ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	l := lines[0]
	assert.True(t, l.Synthetic)
	assert.Equal(t, SyntheticLineName, l.ProductName)
	assert.Equal(t, "L|33", l.TicketKey)
	assert.True(t, l.Quantity.IsZero())
	assert.True(t, dec("60.5").Equal(l.RevenueIncVat))
	assert.True(t, dec("55").Equal(l.RevenueExVat))
	assert.Equal(t, "cash", l.PaymentMethod, "lấy từ Payments[]")
	assert.True(t, at("2024-03-01", 21, 0).Equal(l.Timestamp), "thời điểm ticket thắng record")
}

func TestExpandTransactionMissingAmountsDefaultToZero(t *testing.T) {
	tx := txOf("L", at("2024-03-01", 20, 0), []interface{}{
		ticket("1", at("2024-03-01", 20, 0), map[string]interface{}{"ProductName": "Gratis"}),
	})
	lines, err := ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].RevenueIncVat.IsZero())
	assert.True(t, lines[0].Quantity.IsZero())
}

func TestExpandTransactionTicketKeyFallback(t *testing.T) {
	tx := txOf("L", at("2024-03-01", 20, 0), []interface{}{
		map[string]interface{}{"Total": 3},
		map[string]interface{}{"Total": 4},
	})
	lines, err := ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "L|"+tx.ID.Hex()+"#0", lines[0].TicketKey)
	assert.Equal(t, "L|"+tx.ID.Hex()+"#1", lines[1].TicketKey)
}

func TestExpandTransactionMalformed(t *testing.T) {
	cases := map[string]interface{}{
		"scalar":        "x",
		"empty list":    []interface{}{},
		"ticket scalar": []interface{}{42},
	}
	for name, payload := range cases {
		_, err := ExpandTransaction(txOf("L", at("2024-03-01", 20, 0), payload), time.UTC)
		assert.True(t, errors.Is(err, common.ErrMalformedRecord), name)
	}

	// không có thời điểm ở line, ticket lẫn record
	tx := txOf("L", time.Time{}, []interface{}{map[string]interface{}{"TotalInc": 1}})
	_, err := ExpandTransaction(tx, time.UTC)
	assert.True(t, errors.Is(err, common.ErrMalformedRecord))
}

func TestExpandTransactionDateOnlyTimestamps(t *testing.T) {
	r := utcResolver(6)

	// ticket chỉ có ngày
	tx := txOf("L", at("2024-03-01", 8, 0), []interface{}{map[string]interface{}{
		"TicketId": "1",
		"Date":     "2024-03-01",
		"Lines":    []interface{}{line("Bar", 1, 5, nil)},
	}})
	lines, err := ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].DateOnly)
	assert.Equal(t, "2024-03-01", lines[0].WorkingDayKey(r))

	// ticket không có thời điểm, date của bản ghi là 00:00
	tx = txOf("L", at("2024-03-01", 0, 0), []interface{}{map[string]interface{}{
		"TicketId": "2",
		"Lines":    []interface{}{line("Bar", 1, 5, nil)},
	}})
	lines, err = ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	assert.True(t, lines[0].DateOnly)
	assert.Equal(t, "2024-03-01", lines[0].WorkingDayKey(r))

	// thời điểm bán đầy đủ trước boundary vẫn thuộc ngày hôm trước
	tx = txOf("L", at("2024-03-01", 0, 0), []interface{}{ticket("3", at("2024-03-01", 2, 0), line("Bar", 1, 5, nil))})
	lines, err = ExpandTransaction(tx, time.UTC)
	require.NoError(t, err)
	assert.False(t, lines[0].DateOnly)
	assert.Equal(t, "2024-02-29", lines[0].WorkingDayKey(r))
}
