package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/sources"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Fetcher 抓取URL,失败(含404与重试耗尽)时返回 (nil, false)
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, bool)
}

// Crawler 单个新闻源的分块抓取协调器
// 块内的列表页与文章并发抓取,块与块之间顺序执行并等待 BlockDelay
type Crawler struct {
	source  sources.Source
	fetcher Fetcher
	config  models.CrawlConfig

	monitor  *crawlers.ResourceMonitor
	progress io.Writer
	sleep    func(ctx context.Context, d time.Duration) error

	logger zerolog.Logger

	// 统计信息,只在块屏障之后由主流程写入
	stats models.TaskStats
}

// Option 协调器选项
type Option func(*Crawler)

// WithMonitor 每个块结束时采样系统资源
func WithMonitor(m *crawlers.ResourceMonitor) Option {
	return func(c *Crawler) { c.monitor = m }
}

// WithProgress 将块进度条输出到w
func WithProgress(w io.Writer) Option {
	return func(c *Crawler) { c.progress = w }
}

// NewCrawler 创建协调器
func NewCrawler(source sources.Source, fetcher Fetcher, config models.CrawlConfig, opts ...Option) *Crawler {
	c := &Crawler{
		source:  source,
		fetcher: fetcher,
		config:  config,
		sleep:   crawlers.Sleep,
		logger:  utils.Component("crawler").With().Str("source", string(source.ID())).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats 返回统计信息
func (c *Crawler) Stats() models.TaskStats {
	return c.stats
}

// Run 抓取窗口内的文章
// 执行流程:
//  1. 规划列表单元 (分页源先定位区间,按日源按天生成)
//  2. 按 BlockSize 分块,最旧的在前
//  3. 逐块抓取列表页、去重、抓取文章、按日期过滤
//  4. 块间等待 BlockDelay,最后一块之后不等待
//
// 返回的文章按块顺序追加;ctx取消时返回已完成块的结果与ctx错误
func (c *Crawler) Run(ctx context.Context, window models.DateWindow) ([]*models.Article, error) {
	startTime := time.Now()
	defer func() {
		c.stats.Duration = time.Since(startTime).Seconds()
	}()

	c.logger.Info().Str("window", window.String()).Msgf("🚀 开始抓取 %s", c.source.ID())

	units, err := c.plan(ctx, window)
	if err != nil {
		return nil, err
	}
	c.stats.PagesPlanned = len(units)
	if len(units) == 0 {
		c.logger.Info().Msg("窗口内没有需要抓取的列表页")
		return nil, nil
	}

	blocks := crawlers.SplitIntoBlocks(units, c.config.BlockSize)
	bar := utils.NewProgressBar(len(blocks), string(c.source.ID()), c.progress)
	seen := crawlers.NewURLSet()

	var result []*models.Article
	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		kept := c.runBlock(ctx, block, window, seen)
		result = append(result, kept...)
		c.stats.Blocks++
		c.stats.UniqueURLs = seen.Len()
		_ = bar.Add(1)

		event := c.logger.Info().
			Int("block", i+1).
			Int("blocks", len(blocks)).
			Int("kept", len(kept)).
			Int("total_kept", len(result))
		if c.monitor != nil {
			status := c.monitor.Sample()
			event = event.Float64("mem_used_percent", status.UsedPercent)
		}
		event.Msgf("📦 块 %d/%d 完成", i+1, len(blocks))

		if i < len(blocks)-1 {
			c.logger.Debug().Msgf("等待 %s 后处理下一块...", c.config.BlockDelay)
			if err := c.sleep(ctx, c.config.BlockDelay); err != nil {
				return result, err
			}
		}
	}

	c.stats.ArticlesKept = len(result)
	c.logger.Info().
		Int("articles", len(result)).
		Int("filtered", c.stats.ArticlesFiltered).
		Int("unique_urls", c.stats.UniqueURLs).
		Int("undated", c.stats.Undated).
		Msgf("✅ %s 抓取完成", c.source.ID())

	return result, ctx.Err()
}

// plan 生成列表单元URL,最旧的在前
func (c *Crawler) plan(ctx context.Context, window models.DateWindow) ([]string, error) {
	switch src := c.source.(type) {
	case sources.Paginated:
		return c.planPaginated(ctx, src, window)
	case sources.Daily:
		return src.DayURLs(window), nil
	default:
		return nil, fmt.Errorf("新闻源 %s 未实现分页或按日列表", c.source.ID())
	}
}

func (c *Crawler) planPaginated(ctx context.Context, src sources.Paginated, window models.DateWindow) ([]string, error) {
	body, ok := c.fetcher.Fetch(ctx, src.TotalURL())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		c.logger.Warn().Str("url", src.TotalURL()).Msg("⚠️  无法获取总页数")
		return nil, nil
	}

	total := src.ParseListing(body).TotalPages.OrElse(0)
	if total <= 0 {
		c.logger.Warn().Msg("⚠️  未找到分页信息,视为没有内容")
		return nil, nil
	}

	lo, hi := src.SearchBounds(total)
	r := models.IndexRange{End: lo, Start: hi}

	if src.DateSearch() {
		resolver := crawlers.NewRangeResolver(crawlers.ProberFunc(func(ctx context.Context, index int) (time.Time, bool) {
			body, ok := c.fetcher.Fetch(ctx, src.ProbeURL(index))
			if !ok {
				return time.Time{}, false
			}
			return src.ParseListing(body).BoundaryDate.Get()
		}))
		r = resolver.Resolve(ctx, window, lo, hi)
		c.stats.Probes = resolver.Probes()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	c.logger.Info().
		Int("total", total).
		Int("end", r.End).
		Int("start", r.Start).
		Msgf("列表区间 [%d, %d]", r.End, r.Start)

	if r.Empty() {
		return nil, nil
	}
	return src.ListingURLs(r), nil
}

// runBlock 处理一个块,返回通过日期过滤的文章
// 并发结果写入按下标划分的局部切片,屏障之后再汇总
func (c *Crawler) runBlock(ctx context.Context, units []string, window models.DateWindow, seen *crawlers.URLSet) []*models.Article {
	// 1. 并发抓取列表页
	pages := make([]*models.ListingPage, len(units))
	g := c.group()
	for i, u := range units {
		g.Go(func() error {
			body, ok := c.fetcher.Fetch(ctx, u)
			if !ok {
				return nil
			}
			page := c.source.ParseListing(body)
			pages[i] = &page
			return nil
		})
	}
	_ = g.Wait()

	// 2. 汇总链接并去重
	var urls []string
	var candidates []*models.Article
	for _, page := range pages {
		if page == nil {
			c.stats.PagesFailed++
			continue
		}
		c.stats.PagesFetched++

		for _, u := range page.ArticleURLs {
			if seen.Add(u) {
				urls = append(urls, u)
			} else {
				c.stats.Duplicates++
			}
		}
		for _, a := range page.Articles {
			if seen.Add(a.URL) {
				candidates = append(candidates, a)
			} else {
				c.stats.Duplicates++
			}
		}
	}

	// 3. 并发抓取文章
	articles := make([]*models.Article, len(urls))
	g = c.group()
	for i, u := range urls {
		g.Go(func() error {
			body, ok := c.fetcher.Fetch(ctx, u)
			if !ok {
				return nil
			}
			articles[i] = c.source.ParseArticle(u, body)
			return nil
		})
	}
	_ = g.Wait()

	for _, a := range articles {
		if a == nil {
			c.stats.ArticlesFailed++
			continue
		}
		candidates = append(candidates, a)
	}
	c.stats.ArticlesFetched += len(candidates)

	// 4. 按日期过滤
	kept := make([]*models.Article, 0, len(candidates))
	for _, a := range candidates {
		if !a.PublishedAt.IsSome() {
			c.stats.Undated++
		}
		if c.inWindow(a, window) {
			kept = append(kept, a)
		} else {
			c.stats.ArticlesFiltered++
		}
	}
	return kept
}

func (c *Crawler) group() *errgroup.Group {
	g := new(errgroup.Group)
	if c.config.MaxConcurrent > 0 {
		g.SetLimit(c.config.MaxConcurrent)
	}
	return g
}

// inWindow 严格模式下无日期的文章被丢弃
func (c *Crawler) inWindow(a *models.Article, window models.DateWindow) bool {
	d, ok := a.PublishedAt.Get()
	if !ok {
		return !c.config.StrictDate
	}
	return window.Contains(d)
}
