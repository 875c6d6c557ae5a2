package crawlers

import (
	"context"
	"math/bits"
	"testing"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// pageDates 返回按页码取边界日期的探测器,并记录探测过的页码
func pageDates(dates map[int]string, probed *[]int) ProberFunc {
	return func(_ context.Context, index int) (time.Time, bool) {
		*probed = append(*probed, index)
		d, ok := dates[index]
		if !ok {
			return time.Time{}, false
		}
		return day(d), true
	}
}

func window(t *testing.T, start, end string) models.DateWindow {
	t.Helper()
	w, err := models.NewDateWindow(day(start), day(end), day("2030-01-01"))
	require.NoError(t, err)
	return w
}

func TestRangeResolver_SingleDayWindow(t *testing.T) {
	// 第1页最新,第4页最旧
	dates := map[int]string{
		1: "2024-01-12",
		2: "2024-01-11",
		3: "2024-01-10",
		4: "2024-01-09",
	}
	var probed []int
	r := NewRangeResolver(pageDates(dates, &probed))

	got := r.Resolve(context.Background(), window(t, "2024-01-10", "2024-01-10"), 1, 4)

	// 两端各多出一页: 起始页边界为前一天,结束页边界为后一天
	assert.Equal(t, models.IndexRange{End: 2, Start: 4}, got)
	assert.False(t, got.Empty())
	assert.Contains(t, got.OldestFirst(), 3)
	assert.Equal(t, len(probed), r.Probes())
}

func TestRangeResolver_ProbeFailureTerminates(t *testing.T) {
	dates := map[int]string{
		1: "2024-01-12",
		2: "2024-01-11",
		3: "2024-01-10",
		// 第4、5页不存在
		6: "2024-01-07",
	}
	var probed []int
	r := NewRangeResolver(pageDates(dates, &probed))

	got := r.Resolve(context.Background(), window(t, "2024-01-10", "2024-01-11"), 1, 6)

	assert.GreaterOrEqual(t, got.End, 1)
	assert.LessOrEqual(t, got.Start, 6)
	for _, p := range probed {
		assert.True(t, p > 1 && p < 6, "探测越界: %d", p)
	}
}

func TestRangeResolver_AllProbesFail(t *testing.T) {
	var probed []int
	r := NewRangeResolver(pageDates(map[int]string{}, &probed))

	start := r.FindStart(context.Background(), day("2024-01-10"), 1, 50)
	end := r.FindEnd(context.Background(), day("2024-01-10"), 1, start)

	assert.Equal(t, 50, start)
	assert.Equal(t, 1, end)
	// 每次失败区间收缩一格,最多 hi-lo-1 次
	assert.LessOrEqual(t, len(probed), 2*48)
}

func TestRangeResolver_ProbesBoundedAndInRange(t *testing.T) {
	// 每页一天,第1页为 2024-12-31
	const total = 365
	newest := day("2024-12-31")
	dates := make(map[int]string, total)
	for p := 1; p <= total; p++ {
		dates[p] = newest.AddDate(0, 0, -(p - 1)).Format(models.DateLayout)
	}

	tests := []struct {
		name       string
		start, end string
	}{
		{"单日", "2024-06-15", "2024-06-15"},
		{"一周", "2024-03-01", "2024-03-07"},
		{"接近最新", "2024-12-29", "2024-12-30"},
		{"接近最旧", "2024-01-02", "2024-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var probed []int
			r := NewRangeResolver(pageDates(dates, &probed))
			got := r.Resolve(context.Background(), window(t, tt.start, tt.end), 1, total)

			limit := 2 * (bits.Len(uint(total)) + 1)
			assert.LessOrEqual(t, r.Probes(), limit)
			for _, p := range probed {
				assert.True(t, p >= 1 && p <= total, "探测越界: %d", p)
			}

			require.False(t, got.Empty())
			// 窗口内的每一天都必须被区间覆盖
			for _, d := range window(t, tt.start, tt.end).Days() {
				page := models.DiffDays(newest, d) + 1
				assert.True(t, page >= got.End && page <= got.Start,
					"第%d页(%s)不在区间[%d,%d]内", page, d.Format(models.DateLayout), got.End, got.Start)
			}
		})
	}
}

func TestRangeResolver_WindowNewerThanListing(t *testing.T) {
	dates := map[int]string{1: "2024-01-05", 2: "2024-01-04", 3: "2024-01-03", 4: "2024-01-02"}
	var probed []int
	r := NewRangeResolver(pageDates(dates, &probed))

	got := r.Resolve(context.Background(), window(t, "2024-02-01", "2024-02-02"), 1, 4)
	// 全部内容都早于窗口,区间只剩最新一页,由过滤去除
	assert.Equal(t, 1, got.End)
}

func TestRangeResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var probed []int
	r := NewRangeResolver(pageDates(map[int]string{5: "2024-01-01"}, &probed))

	assert.Equal(t, 100, r.FindStart(ctx, day("2024-01-10"), 1, 100))
	assert.Equal(t, 1, r.FindEnd(ctx, day("2024-01-10"), 1, 100))
	assert.Empty(t, probed)
}

func TestRangeResolver_DegenerateBounds(t *testing.T) {
	var probed []int
	r := NewRangeResolver(pageDates(map[int]string{}, &probed))

	assert.Equal(t, 2, r.FindStart(context.Background(), day("2024-01-10"), 1, 2))
	assert.Equal(t, 1, r.FindEnd(context.Background(), day("2024-01-10"), 1, 2))
	assert.Empty(t, probed)
}
