package reportsvc

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	posmodels "daily_ops/internal/api/pos/models"
	"daily_ops/internal/api/report/dto"
	reportmodels "daily_ops/internal/api/report/models"
	"daily_ops/internal/common"
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

func runReq(start, end, loc string) dto.RunRequest {
	return dto.RunRequest{StartDate: start, EndDate: end, LocationID: loc}
}

func TestRunRejectsInvalidInputBeforeFetch(t *testing.T) {
	cases := []dto.RunRequest{
		runReq("", "2024-03-01", ""),
		runReq("2024-13-01", "2024-03-01", ""),
		runReq("2024-03-05", "2024-03-01", ""),
		runReq("2023-01-01", "2024-03-01", ""),
		runReq("2024-03-01", "2024-03-01", string(make([]byte, 200))),
	}
	for _, req := range cases {
		src := &fakeSource{txs: scenarioA()}
		coll := newFakeAggregateColl()
		svc := newTestService(t, src, coll, nil)

		res, err := svc.Run(context.Background(), req)
		require.Error(t, err, "%+v", req)
		assert.True(t, errors.Is(err, common.ErrInvalidInput), "%+v", req)
		assert.True(t, IsInputError(err))
		assert.Equal(t, dto.RunStatusFailed, res.Status)
		assert.NotEmpty(t, res.Message)
		assert.Equal(t, 0, src.calls, "không fetch khi input lỗi")
		assert.Equal(t, 0, coll.upserts())
	}
}

func TestRunScenarioA(t *testing.T) {
	src := &fakeSource{txs: scenarioA()}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)

	res, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", "L"))
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusSuccess, res.Status)
	assert.Equal(t, 1, res.RecordsAggregated)
	assert.Equal(t, 2, res.TransactionsRead)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.CategorySnapshotID)
	assert.NotEmpty(t, res.Message)

	// window fetch: [D 06:00, D+1 06:00) nới mỗi bên 24h
	assert.Equal(t, at("2024-02-29", 6, 0), src.lastFrom.UTC())
	assert.Equal(t, at("2024-03-03", 6, 0), src.lastTo.UTC())

	doc, ok := coll.docs[reportmodels.AggregateKey{LocationID: "L", WorkingDay: "2024-03-01"}]
	require.True(t, ok)
	assert.Equal(t, 40.0, doc.TotalRevenue)
	assert.Equal(t, int64(2), doc.TotalTransactions)
	assert.Equal(t, 6, doc.BoundaryHour)
	assert.Equal(t, "UTC", doc.Timezone)
}

func TestRunIdempotent(t *testing.T) {
	src := &fakeSource{txs: randomTransactions(120)}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)
	req := runReq("2024-03-01", "2024-03-03", "")

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	snapshot := make(map[reportmodels.AggregateKey]reportmodels.SalesAggregate, len(coll.docs))
	for k, v := range coll.docs {
		snapshot[k] = v
	}

	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.RecordsAggregated, second.RecordsAggregated)
	assert.Equal(t, snapshot, coll.docs)
	assert.Len(t, coll.docs, first.RecordsAggregated, "không sinh document trùng")
}

func TestRunIdempotentExceptComputedAt(t *testing.T) {
	src := &fakeSource{txs: randomTransactions(60)}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)
	req := runReq("2024-03-01", "2024-03-03", "")

	_, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	first := make(map[reportmodels.AggregateKey]reportmodels.SalesAggregate, len(coll.docs))
	for k, v := range coll.docs {
		first[k] = v
	}

	// lần chạy sau ở thời điểm khác
	svc.writer.now = func() time.Time { return time.Unix(1700003600, 0) }
	_, err = svc.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, coll.docs, len(first))

	for k, before := range first {
		after := coll.docs[k]
		assert.Equal(t, int64(1700000000), before.ComputedAt)
		assert.Equal(t, int64(1700003600), after.ComputedAt)
		before.ComputedAt, after.ComputedAt = 0, 0
		assert.Equal(t, before, after, "%v", k)
	}
}

func TestRunDropsDaysOutsideRange(t *testing.T) {
	txs := append(scenarioA(),
		// 05:00 ngày 2024-03-02 vẫn thuộc working day 2024-03-01
		txOf("L", at("2024-03-02", 5, 0), []interface{}{ticket("3", at("2024-03-02", 5, 0), line("Bar", 1, 5, nil))}),
		// ticket có timestamp ngoài khoảng dù record nằm trong window
		txOf("L", at("2024-03-01", 23, 0), []interface{}{ticket("4", at("2024-03-03", 12, 0), line("Bar", 1, 7, nil))}),
	)
	src := &fakeSource{txs: txs}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)

	res, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordsAggregated)
	require.Len(t, coll.docs, 1)
	assert.Equal(t, 45.0, coll.docs[reportmodels.AggregateKey{LocationID: "L", WorkingDay: "2024-03-01"}].TotalRevenue)
}

func TestRunIncludesRecordsDatedOutsideWorkingWindow(t *testing.T) {
	txs := []posmodels.PosTransaction{
		// bản ghi mang ngày kinh doanh 00:00, ticket lúc 19:00
		txOf("L", at("2024-03-01", 0, 0), []interface{}{ticket("1", at("2024-03-01", 19, 0), line("Bar", 1, 10, nil))}),
		// sync sáng hôm sau cho ticket tối hôm trước
		txOf("L", at("2024-03-02", 7, 0), []interface{}{ticket("2", at("2024-03-01", 22, 0), line("Bar", 1, 20, nil))}),
		// ticket chỉ có ngày
		txOf("L", at("2024-03-01", 8, 0), []interface{}{map[string]interface{}{
			"TicketId": "3",
			"Date":     "2024-03-01",
			"Lines":    []interface{}{line("Bar", 1, 30, nil)},
		}}),
		// ngày bên cạnh: được fetch nhưng bị bỏ
		txOf("L", at("2024-03-02", 12, 0), []interface{}{ticket("4", at("2024-03-02", 12, 0), line("Bar", 1, 99, nil))}),
	}
	src := &fakeSource{txs: txs}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)

	req := runReq("2024-03-01", "2024-03-01", "L")
	res, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TransactionsRead)
	require.Len(t, coll.docs, 1)
	key := reportmodels.AggregateKey{LocationID: "L", WorkingDay: "2024-03-01"}
	assert.Equal(t, 60.0, coll.docs[key].TotalRevenue)
	assert.Equal(t, int64(3), coll.docs[key].TotalTransactions)

	// tính lại một ngày không làm mất doanh thu đã ghi
	_, err = svc.RecomputeDay(context.Background(), "L", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 60.0, coll.docs[key].TotalRevenue)
}

func TestRunReportsWarnings(t *testing.T) {
	txs := scenarioA()
	for i := 0; i < dto.MaxReportedWarnings+5; i++ {
		txs = append(txs, txOf("L", at("2024-03-01", 12, 0), "garbage"))
	}
	src := &fakeSource{txs: txs}
	svc := newTestService(t, src, newFakeAggregateColl(), nil)

	res, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", "L"))
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusSuccess, res.Status)
	assert.Equal(t, dto.MaxReportedWarnings+5, res.WarningCount)
	assert.Len(t, res.Warnings, dto.MaxReportedWarnings)
	assert.Equal(t, 1, res.RecordsAggregated)
}

func TestRunFetchFailure(t *testing.T) {
	src := &fakeSource{txErr: errors.New("boom")}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)

	res, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", ""))
	require.Error(t, err)
	assert.Equal(t, dto.RunStatusFailed, res.Status)
	assert.Contains(t, res.Message, "fetch transactions")
	assert.Equal(t, 0, coll.upserts())
}

func TestRunPartialPersistence(t *testing.T) {
	src := &fakeSource{txs: randomTransactions(120)}
	coll := newFakeAggregateColl()
	coll.failOn = 2
	coll.failErr = errors.New("not primary")
	svc := newTestService(t, src, coll, nil)

	res, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-03", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPersistence))
	assert.Equal(t, dto.RunStatusPartial, res.Status)
	assert.Equal(t, 2, res.RecordsAggregated, "lô đầu (2 key) đã ghi")
	assert.Greater(t, res.RecordsComputed, res.RecordsAggregated)

	// chạy lại toàn bộ khoảng ngày sau khi lỗi hết
	coll.failOn = 0
	res, err = svc.Run(context.Background(), runReq("2024-03-01", "2024-03-03", ""))
	require.NoError(t, err)
	assert.Equal(t, dto.RunStatusSuccess, res.Status)
	assert.Len(t, coll.docs, res.RecordsAggregated)
}

func TestRunLock(t *testing.T) {
	src := &fakeSource{txs: scenarioA()}
	locker := &fakeLocker{}
	svc := newTestService(t, src, newFakeAggregateColl(), locker)

	_, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", "L"))
	require.NoError(t, err)
	assert.Equal(t, []string{"L"}, locker.acquired)
	assert.Equal(t, 1, locker.released)

	busy := &fakeLocker{err: common.ErrRunInProgress}
	src = &fakeSource{txs: scenarioA()}
	svc = newTestService(t, src, newFakeAggregateColl(), busy)
	res, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrRunInProgress))
	assert.Equal(t, dto.RunStatusFailed, res.Status)
	assert.Equal(t, 0, src.calls)
}

func TestFindAggregates(t *testing.T) {
	src := &fakeSource{txs: scenarioA()}
	coll := newFakeAggregateColl()
	svc := newTestService(t, src, coll, nil)
	_, err := svc.Run(context.Background(), runReq("2024-03-01", "2024-03-01", "L"))
	require.NoError(t, err)

	list, err := svc.FindAggregates(context.Background(), "L", "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 40.0, list[0].TotalRevenue)
	require.Len(t, list[0].PaymentMethodBreakdown, 2)
	assert.Equal(t, "cash", list[0].PaymentMethodBreakdown[0].Key)

	_, err = svc.FindAggregates(context.Background(), "", "2024-03-01", "2024-03-01")
	assert.True(t, IsInputError(err))
}
