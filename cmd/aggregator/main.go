package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Container tối giản không có zoneinfo

	"github.com/sirupsen/logrus"

	"daily_ops/internal/api/report/dto"
	reportsvc "daily_ops/internal/api/report/service"
	"daily_ops/internal/database"
	"daily_ops/internal/global"
	"daily_ops/internal/logger"
	"daily_ops/internal/worker"
)

// Mã thoát của một lần chạy
const (
	exitOK         = 0
	exitFailed     = 1
	exitInvalidArg = 2
	exitPartial    = 3
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

type cliArgs struct {
	from     string
	to       string
	location string
	worker   bool
}

func parseArgs() cliArgs {
	var a cliArgs
	flag.StringVar(&a.from, "from", "", "Working day đầu (YYYY-MM-DD)")
	flag.StringVar(&a.to, "to", "", "Working day cuối, tính cả ngày này (YYYY-MM-DD). Trống = bằng -from")
	flag.StringVar(&a.location, "location", "", "Chỉ aggregate một location (trống = mọi location)")
	flag.BoolVar(&a.worker, "worker", false, "Chạy worker xử lý dirty days thay vì chạy một lần")
	flag.Parse()
	if a.to == "" {
		a.to = a.from
	}
	return a
}

func main() {
	args := parseArgs()

	initLogger()
	defer logger.Close()

	InitGlobal()
	InitRegistry()
	defer database.CloseInstance(global.MongoDB_Session)

	locker, closeLocker := initRunLocker()
	defer closeLocker()

	cfg := global.MongoDB_ServerConfig
	svc, err := reportsvc.NewReportService(reportsvc.Options{
		Timezone:         cfg.ReportTimezone,
		BoundaryHour:     cfg.WorkingDayBoundaryHour,
		Workers:          cfg.AggregateWorkers,
		CategoryMaxDepth: cfg.CategoryMaxDepth,
		WriteBatchSize:   cfg.WriteBatchSize,
		FetchPadding:     time.Duration(cfg.FetchPaddingHours) * time.Hour,
	}, locker)
	if err != nil {
		logrus.Fatalf("Failed to initialize report service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.worker {
		w := worker.NewReportDirtyWorker(svc,
			time.Duration(cfg.DirtyWorkerIntervalSec)*time.Second,
			cfg.DirtyWorkerBatchSize)
		w.Start(ctx)
		return
	}

	code := runOnce(ctx, svc, dto.RunRequest{StartDate: args.from, EndDate: args.to, LocationID: args.location})
	if code != exitOK {
		// os.Exit bỏ qua defer: đóng tài nguyên trước
		stop()
		closeLocker()
		_ = database.CloseInstance(global.MongoDB_Session)
		logger.Close()
		os.Exit(code)
	}
}

// runOnce chạy một lần aggregate, in RunResult ra stdout và trả về mã thoát
func runOnce(ctx context.Context, svc *reportsvc.ReportService, req dto.RunRequest) int {
	log := logger.WithModule("aggregate")

	result, err := svc.Run(ctx, req)
	if result != nil {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	}

	switch {
	case err == nil:
		return exitOK
	case reportsvc.IsInputError(err):
		log.WithError(err).Error("📊 [AGGREGATE] Tham số không hợp lệ")
		flag.Usage()
		return exitInvalidArg
	case reportsvc.IsCanceled(err):
		log.WithError(err).Warn("📊 [AGGREGATE] Lần chạy bị hủy")
		return exitFailed
	case result != nil && result.Status == dto.RunStatusPartial:
		return exitPartial
	default:
		return exitFailed
	}
}
