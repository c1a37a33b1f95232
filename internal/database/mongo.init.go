package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"daily_ops/internal/logger"
)

// IndexSpec một index đọc từ tag `index` của model
type IndexSpec struct {
	Name   string
	Keys   bson.D
	Unique bool
	Sparse bool
	TTL    *int32
}

// EnsureCollections tạo các collection còn thiếu trong database.
// Collection nguồn (POS) do sync process ghi, ở đây chỉ tạo nếu chưa có để Find không lỗi khi DB trống.
func EnsureCollections(ctx context.Context, db *mongo.Database, names []string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	for _, name := range names {
		if name == "" || have[name] {
			continue
		}
		logger.GetAppLogger().Infof("Collection %s chưa tồn tại, tạo mới.", name)
		if err := db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		have[name] = true
	}
	return nil
}

// parseOrder trích thứ tự sắp xếp từ tag (1 hoặc -1)
func parseOrder(tag string) int {
	if strings.Contains(tag, "order:-1") {
		return -1
	}
	return 1
}

// parseIndexTag tách tag index: các nhóm cách nhau ';', mỗi nhóm là danh sách key[:value] cách nhau ','
func parseIndexTag(tag string) []map[string]string {
	var result []map[string]string
	for _, part := range strings.Split(tag, ";") {
		entry := map[string]string{}
		for _, sub := range strings.Split(part, ",") {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				continue
			}
			kv := strings.SplitN(sub, ":", 2)
			if len(kv) == 2 {
				entry[kv[0]] = kv[1]
			} else {
				entry[kv[0]] = ""
			}
		}
		if len(entry) > 0 {
			result = append(result, entry)
		}
	}
	return result
}

// IndexSpecsOf đọc tag `index` của model.
//   - single → index 1 field "<field>_single"
//   - unique[,sparse] → unique 1 field "<field>_unique"
//   - ttl:<giây> → TTL index "<field>_ttl"
//   - compound:<tên> → gộp các field cùng tên theo thứ tự khai báo; tên chứa "_unique" thì unique
func IndexSpecsOf(model interface{}) ([]IndexSpec, error) {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model phải là struct, nhận %s", modelType.Kind())
	}

	var specs []IndexSpec
	compounds := map[string]*IndexSpec{}
	var compoundOrder []string

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}
		bsonField := strings.Split(field.Tag.Get("bson"), ",")[0]
		if bsonField == "" || bsonField == "-" {
			continue
		}

		for _, cfg := range parseIndexTag(tag) {
			_, sparse := cfg["sparse"]
			if _, ok := cfg["single"]; ok {
				specs = append(specs, IndexSpec{
					Name: bsonField + "_single",
					Keys: bson.D{{Key: bsonField, Value: parseOrder(tag)}},
				})
			}
			if _, ok := cfg["unique"]; ok {
				specs = append(specs, IndexSpec{
					Name:   bsonField + "_unique",
					Keys:   bson.D{{Key: bsonField, Value: 1}},
					Unique: true,
					Sparse: sparse,
				})
			}
			if ttlValue, ok := cfg["ttl"]; ok {
				ttl, err := strconv.Atoi(ttlValue)
				if err != nil {
					return nil, fmt.Errorf("TTL không hợp lệ ở field %s: %w", field.Name, err)
				}
				seconds := int32(ttl)
				specs = append(specs, IndexSpec{
					Name: bsonField + "_ttl",
					Keys: bson.D{{Key: bsonField, Value: 1}},
					TTL:  &seconds,
				})
			}
			if group, ok := cfg["compound"]; ok {
				spec, exists := compounds[group]
				if !exists {
					spec = &IndexSpec{Name: group, Unique: strings.Contains(group, "_unique")}
					compounds[group] = spec
					compoundOrder = append(compoundOrder, group)
				}
				spec.Keys = append(spec.Keys, bson.E{Key: bsonField, Value: parseOrder(tag)})
				spec.Sparse = spec.Sparse || sparse
			}
		}
	}

	for _, group := range compoundOrder {
		specs = append(specs, *compounds[group])
	}
	return specs, nil
}

func (s IndexSpec) options() *options.IndexOptions {
	opts := options.Index().SetName(s.Name)
	if s.Unique {
		opts.SetUnique(true)
	}
	if s.Sparse {
		opts.SetSparse(true)
	}
	if s.TTL != nil {
		opts.SetExpireAfterSeconds(*s.TTL)
	}
	return opts
}

// sameIndex so sánh index hiện có với spec: cùng key theo thứ tự, cùng unique
func sameIndex(existing bson.M, spec IndexSpec) bool {
	var existingKeys bson.D
	switch k := existing["key"].(type) {
	case bson.D:
		existingKeys = k
	case bson.M:
		// bson.M không giữ thứ tự, chỉ so được tập key
		for key, v := range k {
			existingKeys = append(existingKeys, bson.E{Key: key, Value: v})
		}
		sort.Slice(existingKeys, func(i, j int) bool { return existingKeys[i].Key < existingKeys[j].Key })
		wanted := append(bson.D(nil), spec.Keys...)
		sort.Slice(wanted, func(i, j int) bool { return wanted[i].Key < wanted[j].Key })
		return sameKeys(existingKeys, wanted) && existingUnique(existing) == spec.Unique
	default:
		return false
	}
	return sameKeys(existingKeys, spec.Keys) && existingUnique(existing) == spec.Unique
}

func sameKeys(a, b bson.D) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || toInt(a[i].Value) != toInt(b[i].Value) {
			return false
		}
	}
	return true
}

func existingUnique(idx bson.M) bool {
	u, _ := idx["unique"].(bool)
	return u
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

// CreateIndexes tạo index theo tag của model, index cùng tên nhưng sai cấu hình thì drop rồi tạo lại.
func CreateIndexes(ctx context.Context, collection *mongo.Collection, model interface{}) error {
	log := logger.WithModule("database").WithField("collection", collection.Name())

	specs, err := IndexSpecsOf(model)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return nil
	}

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("không thể lấy danh sách index: %w", err)
	}
	existing := map[string]bson.M{}
	for cursor.Next(ctx) {
		var info bson.M
		if err := cursor.Decode(&info); err != nil {
			cursor.Close(ctx)
			return fmt.Errorf("không thể giải mã thông tin index: %w", err)
		}
		if name, ok := info["name"].(string); ok {
			existing[name] = info
		}
	}
	cursor.Close(ctx)

	for _, spec := range specs {
		if current, ok := existing[spec.Name]; ok {
			if sameIndex(current, spec) {
				log.WithField("index", spec.Name).Debug("Index đã tồn tại và đúng cấu hình, bỏ qua")
				continue
			}
			if _, err := collection.Indexes().DropOne(ctx, spec.Name); err != nil {
				return fmt.Errorf("không thể xóa index %s: %w", spec.Name, err)
			}
			log.WithField("index", spec.Name).Info("Đã xóa index cũ")
		}
		if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: spec.Keys, Options: spec.options()}); err != nil {
			return fmt.Errorf("không thể tạo index %s: %w", spec.Name, err)
		}
		log.WithFields(logrus.Fields{"index": spec.Name, "unique": spec.Unique}).Info("Đã tạo index")
	}
	return nil
}
