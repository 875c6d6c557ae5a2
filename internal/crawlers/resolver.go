package crawlers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/rs/zerolog"
)

// Prober 获取某个页码(或偏移量)处的边界日期
// 该位置无法获取或无日期时返回 false
type Prober interface {
	Boundary(ctx context.Context, index int) (time.Time, bool)
}

// ProberFunc 函数适配器
type ProberFunc func(ctx context.Context, index int) (time.Time, bool)

// Boundary 实现 Prober
func (f ProberFunc) Boundary(ctx context.Context, index int) (time.Time, bool) {
	return f(ctx, index)
}

// RangeResolver 二分查找日期窗口对应的页码区间
// 页码越大内容越旧
type RangeResolver struct {
	prober Prober
	probes atomic.Int64
	logger zerolog.Logger
}

// NewRangeResolver 创建区间解析器
func NewRangeResolver(prober Prober) *RangeResolver {
	return &RangeResolver{
		prober: prober,
		logger: utils.Component("resolver"),
	}
}

// Probes 已执行的探测次数
func (r *RangeResolver) Probes() int {
	return int(r.probes.Load())
}

func (r *RangeResolver) probe(ctx context.Context, index int) (time.Time, bool) {
	r.probes.Add(1)
	boundary, ok := r.prober.Boundary(ctx, index)
	event := r.logger.Debug().Int("index", index)
	if ok {
		event.Str("boundary", boundary.Format(models.DateLayout)).Msg("探测")
	} else {
		event.Msg("探测失败")
	}
	return boundary, ok
}

// FindStart 查找最旧的相关页码
// 目标页的边界日期恰好比 target 早一天;找不到时收敛到 hi
// 探测失败时 lo 加一,保证循环终止
func (r *RangeResolver) FindStart(ctx context.Context, target time.Time, lo, hi int) int {
	for hi-lo > 1 {
		if ctx.Err() != nil {
			return hi
		}

		mid := lo + (hi-lo)/2
		boundary, ok := r.probe(ctx, mid)
		if !ok {
			lo++
			continue
		}

		diff := models.DiffDays(target, boundary)
		switch {
		case diff == 1:
			return mid
		case diff > 1:
			hi = mid
		default:
			lo = mid
		}
	}
	return hi
}

// FindEnd 查找最新的相关页码
// 目标页的边界日期恰好比 target 晚一天;找不到时收敛到 lo
// 探测失败时 hi 减一
func (r *RangeResolver) FindEnd(ctx context.Context, target time.Time, lo, hi int) int {
	for hi-lo > 1 {
		if ctx.Err() != nil {
			return lo
		}

		mid := lo + (hi-lo)/2
		boundary, ok := r.probe(ctx, mid)
		if !ok {
			hi--
			continue
		}

		diff := models.DiffDays(target, boundary)
		switch {
		case diff == -1:
			return mid
		case diff < -1:
			lo = mid
		default:
			hi = mid
		}
	}
	return lo
}

// Resolve 计算窗口对应的区间
// 先定位起始页,再在 [lo, start] 内定位结束页
// 区间两端各可能多出一页,最终由日期过滤去除
func (r *RangeResolver) Resolve(ctx context.Context, window models.DateWindow, lo, hi int) models.IndexRange {
	start := r.FindStart(ctx, window.Start, lo, hi)
	end := r.FindEnd(ctx, window.End, lo, start)

	r.logger.Info().
		Int("start", start).
		Int("end", end).
		Int("probes", r.Probes()).
		Msgf("🔎 区间定位完成 [%d, %d]", end, start)

	return models.IndexRange{End: end, Start: start}
}
