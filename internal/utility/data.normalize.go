package utility

import (
	"sort"
	"strings"
	"time"
)

// FieldSpec khai báo một field logic và danh sách key nguồn theo thứ tự ưu tiên.
// Candidate có thể là key phẳng ("TotalInc") hoặc path lồng nhau ("costs.wage").
// Numeric = true thì giá trị được ép về float64, không ép được thì coi như null.
type FieldSpec struct {
	Name       string
	Candidates []string
	Numeric    bool
}

// Record là bản ghi đã chuẩn hóa: field logic + các field lồng nhau đã làm phẳng (parent_child).
type Record map[string]interface{}

// Normalize trích field logic từ bản ghi lồng nhau theo bảng accessor specs.
//   - mỗi field logic lấy candidate đầu tiên có giá trị khác nil
//   - mọi field object lồng nhau khác được làm phẳng thành key "parent_child"
//   - array giữ nguyên, không làm phẳng
//   - source nil / không phải document → mọi field logic là nil
func Normalize(source interface{}, specs []FieldSpec) Record {
	rec := Record{}
	src, ok := AsMap(source)
	if ok {
		Flatten(src, "", rec)
	}
	for _, spec := range specs {
		value, _, found := FirstValue(src, spec.Candidates)
		if !found {
			rec[spec.Name] = nil
			continue
		}
		if spec.Numeric {
			if f, ok := ToFloat(value); ok {
				rec[spec.Name] = f
			} else {
				rec[spec.Name] = nil
			}
			continue
		}
		rec[spec.Name] = value
	}
	return rec
}

// Flatten làm phẳng map lồng nhau vào out với key nối bằng "_". Key được duyệt theo thứ tự
// để kết quả ổn định khi có xung đột tên (key đã có thì giữ nguyên).
func Flatten(src map[string]interface{}, prefix string, out Record) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if nested, ok := src[k].(map[string]interface{}); ok && len(nested) > 0 {
			Flatten(nested, key, out)
			continue
		}
		if _, exists := out[key]; !exists {
			out[key] = src[k]
		}
	}
}

// Lookup lấy giá trị theo key phẳng, nếu không có thì theo path "a.b.c".
func Lookup(source map[string]interface{}, path string) (interface{}, bool) {
	if source == nil || path == "" {
		return nil, false
	}
	if v, ok := source[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}
	var current interface{} = source
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, exists := m[part]
		if !exists {
			return nil, false
		}
		current = next
	}
	return current, true
}

// FirstValue trả về giá trị khác nil đầu tiên theo candidates, kèm candidate đã khớp.
func FirstValue(source map[string]interface{}, candidates []string) (interface{}, string, bool) {
	for _, c := range candidates {
		if v, ok := Lookup(source, c); ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, c, true
		}
	}
	return nil, "", false
}

// Value trả về giá trị thô của field
func (r Record) Value(name string) interface{} {
	return r[name]
}

// Has cho biết field có giá trị khác nil
func (r Record) Has(name string) bool {
	return r[name] != nil
}

// String trả về field dạng chuỗi đã trim ("" nếu nil)
func (r Record) String(name string) string {
	return ToString(r[name])
}

// Float trả về field dạng số; ok = false nếu nil hoặc không ép được
func (r Record) Float(name string) (float64, bool) {
	return ToFloat(r[name])
}

// FloatOr trả về field dạng số hoặc giá trị mặc định
func (r Record) FloatOr(name string, fallback float64) float64 {
	if f, ok := ToFloat(r[name]); ok {
		return f
	}
	return fallback
}

// Time trả về field dạng thời gian (chuỗi không timezone hiểu theo loc)
func (r Record) Time(name string, loc *time.Location) (time.Time, bool) {
	return ToTime(r[name], loc)
}
