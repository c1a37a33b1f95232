package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy batch aggregate
type Configuration struct {
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"` // URL kết nối cơ sở dữ liệu
	MongoDB_DBName_Data   string `env:"MONGODB_DBNAME_DATA,required"`    // Tên cơ sở dữ liệu chứa dữ liệu nguồn và aggregate

	// Tên collection (mặc định theo quy ước của sync process)
	Col_PosTransactions string `env:"COL_POS_TRANSACTIONS" envDefault:"pos_transactions"`     // Raw ticket/order/line
	Col_PosLaborShifts  string `env:"COL_POS_LABOR_SHIFTS" envDefault:"pos_labor_shifts"`     // Raw shift
	Col_PosCategories   string `env:"COL_POS_CATEGORIES" envDefault:"pos_product_groups"`     // Bảng danh mục
	Col_SalesAggregates string `env:"COL_SALES_AGGREGATES" envDefault:"report_sales_daily"`   // Kết quả aggregate
	Col_DirtyDays       string `env:"COL_DIRTY_DAYS" envDefault:"report_sales_dirty_days"`    // Ngày cần tính lại

	// Working day
	WorkingDayBoundaryHour int    `env:"WORKING_DAY_BOUNDARY_HOUR" envDefault:"6"`           // Giờ bắt đầu ngày làm việc (0-23)
	ReportTimezone         string `env:"REPORT_TIMEZONE" envDefault:"Europe/Amsterdam"`      // Timezone cố định để cắt ngày

	// Engine
	AggregateWorkers  int `env:"AGGREGATE_WORKERS" envDefault:"4"`    // Số shard xử lý song song
	CategoryMaxDepth  int `env:"CATEGORY_MAX_DEPTH" envDefault:"10"`  // Giới hạn độ sâu duyệt cây danh mục
	WriteBatchSize    int `env:"WRITE_BATCH_SIZE" envDefault:"500"`   // Số upsert mỗi lần BulkWrite
	FetchPaddingHours int `env:"FETCH_PADDING_HOURS" envDefault:"24"` // Nới window fetch mỗi bên (độ trễ sync tối đa)

	// Redis lock (optional - rỗng = không khóa)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RunLockTTLSec int    `env:"RUN_LOCK_TTL_SEC" envDefault:"600"` // TTL khóa một lần chạy (giây)

	// Dirty worker
	DirtyWorkerIntervalSec int `env:"DIRTY_WORKER_INTERVAL_SEC" envDefault:"300"` // Khoảng thời gian giữa các lần chạy
	DirtyWorkerBatchSize   int `env:"DIRTY_WORKER_BATCH_SIZE" envDefault:"50"`    // Số ngày tối đa mỗi lần
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env, đi lên thư mục cha nếu cần
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", env))
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig đọc cấu hình từ file env (nếu có) rồi parse biến môi trường.
// Thiếu file env không phải lỗi: khi chạy trong container biến môi trường được set sẵn.
func NewConfig() (*Configuration, error) {
	if envPath := getEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load file env %s: %w", envPath, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.WorkingDayBoundaryHour < 0 || cfg.WorkingDayBoundaryHour > 23 {
		return nil, fmt.Errorf("WORKING_DAY_BOUNDARY_HOUR phải trong khoảng 0-23, nhận %d", cfg.WorkingDayBoundaryHour)
	}
	return &cfg, nil
}
