package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"daily_ops/config"
	reportmodels "daily_ops/internal/api/report/models"
	reportsvc "daily_ops/internal/api/report/service"
	"daily_ops/internal/database"
	"daily_ops/internal/global"
)

// Hàm khởi tạo các biến toàn cục
func InitGlobal() {
	initConfig()           // Khởi tạo cấu hình
	initColNames()         // Khởi tạo tên các collection trong database
	initValidator()        // Khởi tạo validator
	initDatabase_MongoDB() // Khởi tạo kết nối database
}

// Hàm khởi tạo cấu hình
func initConfig() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to initialize config: %v", err)
	}
	global.MongoDB_ServerConfig = cfg
	logrus.Info("Initialized config")
}

// Hàm khởi tạo tên các collection, lấy từ cấu hình để dùng chung DB với sync process
func initColNames() {
	cfg := global.MongoDB_ServerConfig
	global.MongoDB_ColNames.PosTransactions = cfg.Col_PosTransactions
	global.MongoDB_ColNames.PosLaborShifts = cfg.Col_PosLaborShifts
	global.MongoDB_ColNames.PosCategories = cfg.Col_PosCategories
	global.MongoDB_ColNames.SalesAggregates = cfg.Col_SalesAggregates
	global.MongoDB_ColNames.DirtyDays = cfg.Col_DirtyDays
	logrus.Info("Initialized collection names")
}

// Hàm khởi tạo validator
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo kết nối database
func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.GetInstance(global.MongoDB_ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err)
	}
	logrus.Info("Connected to MongoDB")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db := global.MongoDB_Session.Database(global.MongoDB_ServerConfig.MongoDB_DBName_Data)
	if err := database.EnsureCollections(ctx, db, collectionNames()); err != nil {
		logrus.Fatalf("Failed to ensure collections: %v", err)
	}

	// Unique (locationId, workingDay) là điều kiện để upsert không tạo bản trùng
	if err := database.CreateIndexes(ctx, db.Collection(global.MongoDB_ColNames.SalesAggregates), reportmodels.SalesAggregate{}); err != nil {
		logrus.Fatalf("Failed to create indexes for %s: %v", global.MongoDB_ColNames.SalesAggregates, err)
	}
	if err := database.CreateIndexes(ctx, db.Collection(global.MongoDB_ColNames.DirtyDays), reportmodels.AggregateDirtyDay{}); err != nil {
		logrus.Fatalf("Failed to create indexes for %s: %v", global.MongoDB_ColNames.DirtyDays, err)
	}
	logrus.Info("Ensured collections and indexes")
}

// collectionNames danh sách collection dùng bởi batch
func collectionNames() []string {
	c := global.MongoDB_ColNames
	return []string{c.PosTransactions, c.PosLaborShifts, c.PosCategories, c.SalesAggregates, c.DirtyDays}
}

// initRunLocker tạo khóa chạy qua Redis. REDIS_ADDR rỗng thì trả về nil (không khóa).
func initRunLocker() (reportsvc.RunLocker, func()) {
	cfg := global.MongoDB_ServerConfig
	if cfg.RedisAddr == "" {
		logrus.Info("REDIS_ADDR trống, chạy không có khóa")
		return nil, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis %s: %v", cfg.RedisAddr, err)
	}
	logrus.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")

	locker := reportsvc.NewRedisRunLocker(rdb, time.Duration(cfg.RunLockTTLSec)*time.Second)
	return locker, func() { _ = rdb.Close() }
}
