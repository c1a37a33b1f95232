package utility

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToPlain chuyển giá trị decode từ BSON (primitive.D, primitive.M, primitive.A, bson.Raw...)
// về map[string]interface{} / []interface{} thuần, đệ quy.
// ObjectID → hex string, DateTime → time.Time (UTC).
func ToPlain(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = ToPlain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = ToPlain(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = ToPlain(val)
		}
		return m
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = ToPlain(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = ToPlain(val)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = ToPlain(val)
		}
		return out
	case bson.Raw:
		var m primitive.M
		if err := bson.Unmarshal(t, &m); err != nil {
			return nil
		}
		return ToPlain(m)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

// AsMap trả về map thuần nếu v là document, ngược lại (nil, false)
func AsMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := ToPlain(v).(map[string]interface{})
	return m, ok
}

// AsSlice trả về slice thuần nếu v là array, ngược lại (nil, false)
func AsSlice(v interface{}) ([]interface{}, bool) {
	s, ok := ToPlain(v).([]interface{})
	return s, ok
}

// ToFloat ép kiểu số. Hỗ trợ int/uint/float, string (dấu phẩy thập phân kiểu EU),
// json.Number, Decimal128 và Extended JSON ($numberLong, $numberInt, $numberDouble, $numberDecimal).
func ToFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(t.String(), 64)
		return f, err == nil
	case string:
		return parseNumberString(t)
	case map[string]interface{}:
		for _, key := range []string{"$numberLong", "$numberInt", "$numberDouble", "$numberDecimal"} {
			if inner, ok := t[key]; ok && len(t) == 1 {
				return ToFloat(inner)
			}
		}
		return 0, false
	case primitive.M:
		return ToFloat(map[string]interface{}(t))
	default:
		return 0, false
	}
}

// parseNumberString parse số dạng chuỗi: "12.50", "12,50", "1.234,56", "1,234.56", "€ 12,50"
func parseNumberString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToString chuyển giá trị scalar về chuỗi đã trim. Số nguyên dạng float in không có phần thập phân.
func ToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return ToString(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	case primitive.ObjectID:
		return t.Hex()
	case map[string]interface{}, []interface{}:
		return ""
	default:
		if f, ok := ToFloat(v); ok {
			return ToString(f)
		}
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// timeLayouts các định dạng thời gian gặp trong dữ liệu POS
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ToTime chuyển giá trị về time.Time. Chuỗi không có timezone được hiểu theo loc.
// Số > 1e12 được coi là mili giây, ngược lại là giây (Unix).
func ToTime(v interface{}, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case primitive.DateTime:
		return t.Time(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			var parsed time.Time
			var err error
			if layout == time.RFC3339 || layout == time.RFC3339Nano {
				parsed, err = time.Parse(layout, s)
			} else {
				parsed, err = time.ParseInLocation(layout, s, loc)
			}
			if err == nil {
				return parsed, true
			}
		}
		if f, ok := parseNumberString(s); ok {
			return unixToTime(f), true
		}
		return time.Time{}, false
	case map[string]interface{}:
		if inner, ok := t["$date"]; ok {
			return ToTime(inner, loc)
		}
		return time.Time{}, false
	default:
		if f, ok := ToFloat(v); ok && f > 0 {
			return unixToTime(f), true
		}
		return time.Time{}, false
	}
}

// IsDateOnly cho biết v là chuỗi chỉ có ngày ("2024-03-01"), không có giờ
func IsDateOnly(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return err == nil
}

func unixToTime(f float64) time.Time {
	if f > 1e12 {
		return time.UnixMilli(int64(f))
	}
	return time.Unix(int64(f), 0)
}
