package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"daily_ops/internal/api/report/dto"
	reportmodels "daily_ops/internal/api/report/models"
	"daily_ops/internal/logger"
)

func TestMain(m *testing.M) {
	cfg := logger.DefaultConfig()
	cfg.Output = "stdout"
	cfg.Level = "error"
	_ = logger.Init(cfg)
	code := m.Run()
	logger.Close()
	os.Exit(code)
}

type fakeProcessor struct {
	pending   []reportmodels.AggregateDirtyDay
	listErr   error
	failDays  map[string]bool
	processed []string
	limit     int
}

func (f *fakeProcessor) GetUnprocessedDirtyDays(_ context.Context, limit int) ([]reportmodels.AggregateDirtyDay, error) {
	f.limit = limit
	return f.pending, f.listErr
}

func (f *fakeProcessor) RecomputeDay(_ context.Context, locationID, workingDay string) (*dto.RunResult, error) {
	if f.failDays[workingDay] {
		return &dto.RunResult{RunID: "r", Status: dto.RunStatusFailed}, errors.New("fetch failed")
	}
	return &dto.RunResult{RunID: "r", Status: dto.RunStatusSuccess, RecordsAggregated: 1}, nil
}

func (f *fakeProcessor) SetDirtyProcessed(_ context.Context, d reportmodels.AggregateDirtyDay) error {
	f.processed = append(f.processed, d.LocationID+"/"+d.WorkingDay)
	return nil
}

func TestProcessBatchSkipsFailedDays(t *testing.T) {
	p := &fakeProcessor{
		pending: []reportmodels.AggregateDirtyDay{
			{LocationID: "L", WorkingDay: "2024-03-01"},
			{LocationID: "L", WorkingDay: "2024-03-02"},
			{LocationID: "M", WorkingDay: "2024-03-01"},
		},
		failDays: map[string]bool{"2024-03-02": true},
	}
	w := NewReportDirtyWorker(p, time.Second, 0)

	assert.Equal(t, 2, w.ProcessBatch(context.Background()))
	assert.Equal(t, []string{"L/2024-03-01", "M/2024-03-01"}, p.processed)
	assert.Equal(t, 50, p.limit, "batch mặc định")
	assert.Equal(t, 5*time.Minute, w.interval, "interval tối thiểu")
}

func TestProcessBatchListError(t *testing.T) {
	p := &fakeProcessor{listErr: errors.New("db down")}
	w := NewReportDirtyWorker(p, time.Minute, 10)
	assert.Equal(t, 0, w.ProcessBatch(context.Background()))
	assert.Empty(t, p.processed)
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewReportDirtyWorker(&fakeProcessor{}, time.Minute, 1).Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker không dừng khi context bị hủy")
	}
}
