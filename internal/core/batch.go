package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/sources"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/mattn/go-runewidth"
)

// FetcherFactory 为新闻源创建抓取器
type FetcherFactory func(id models.SourceID, cfg models.CrawlConfig) (Fetcher, error)

// HTTPFetcherFactory 基于HTTPFetcher的默认工厂
func HTTPFetcherFactory(headers models.HeaderProvider) FetcherFactory {
	return func(id models.SourceID, cfg models.CrawlConfig) (Fetcher, error) {
		f, err := crawlers.NewHTTPFetcher(crawlers.FetcherOptions{
			Policy:      crawlers.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryDelay},
			Timeout:     cfg.Timeout,
			Parallelism: cfg.MaxConcurrent,
			Headers:     headers,
			Source:      id,
		})
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// BatchCrawler 依次抓取所有启用的新闻源
// 单个新闻源失败不影响其他新闻源,ctx取消时立即停止
type BatchCrawler struct {
	config     *Config
	newFetcher FetcherFactory
	monitor    *crawlers.ResourceMonitor
	progress   io.Writer
	summaryOut io.Writer
}

// BatchResult 单个新闻源的抓取结果
type BatchResult struct {
	Source   models.SourceID
	Task     *models.CrawlTask
	Articles []*models.Article
	Error    error
}

// BatchSummary 批量抓取摘要
type BatchSummary struct {
	Results []BatchResult
	Report  *models.RunReport
}

// NewBatchCrawler 创建批量抓取器
// progress 为nil时不显示进度条
func NewBatchCrawler(config *Config, newFetcher FetcherFactory, monitor *crawlers.ResourceMonitor, progress io.Writer) *BatchCrawler {
	return &BatchCrawler{
		config:     config,
		newFetcher: newFetcher,
		monitor:    monitor,
		progress:   progress,
		summaryOut: io.Discard,
	}
}

// SetSummaryOutput 设置摘要表格的输出位置
func (bc *BatchCrawler) SetSummaryOutput(w io.Writer) {
	bc.summaryOut = w
}

// Articles 按新闻源分组的结果
func (s *BatchSummary) Articles() map[models.SourceID][]*models.Article {
	grouped := make(map[models.SourceID][]*models.Article, len(s.Results))
	for _, r := range s.Results {
		if len(r.Articles) > 0 {
			grouped[r.Source] = r.Articles
		}
	}
	return grouped
}

// TotalArticles 文章总数
func (s *BatchSummary) TotalArticles() int {
	total := 0
	for _, r := range s.Results {
		total += len(r.Articles)
	}
	return total
}

// Run 批量抓取
func (bc *BatchCrawler) Run(ctx context.Context, window models.DateWindow) (*BatchSummary, error) {
	ids := bc.config.EnabledSources()
	utils.Infof("🚀 开始批量抓取: %d个新闻源, 窗口 %s", len(ids), window)

	summary := &BatchSummary{
		Results: make([]BatchResult, 0, len(ids)),
		Report:  models.NewRunReport(window),
	}

	var runErr error
	for i, id := range ids {
		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(ids), id)

		result := bc.crawlSource(ctx, id, window)
		summary.Results = append(summary.Results, result)
		if result.Task != nil {
			summary.Report.AddTask(result.Task)
		}

		if result.Error != nil {
			if ctx.Err() != nil {
				utils.Warn("⚠️  抓取被取消")
				runErr = ctx.Err()
				break
			}
			utils.Errorf("❌ %s 抓取失败: %v", id, result.Error)
		}
	}

	if bc.monitor != nil {
		summary.Report.Host = bc.monitor.Snapshot()
	}
	summary.Report.Finish()
	bc.printSummary(summary)

	return summary, runErr
}

// crawlSource 抓取单个新闻源
func (bc *BatchCrawler) crawlSource(ctx context.Context, id models.SourceID, window models.DateWindow) BatchResult {
	result := BatchResult{Source: id}
	cfg := bc.config.CrawlConfigFor(id)

	task, err := models.NewCrawlTask(id, window, cfg)
	if err != nil {
		result.Error = fmt.Errorf("创建任务失败: %w", err)
		return result
	}
	result.Task = task

	src, err := sources.New(id, sources.Options{
		BaseURL:            bc.config.Source(id).BaseURL,
		ArticlesPerRequest: cfg.ArticlesPerRequest,
	})
	if err != nil {
		result.Error = err
		task.MarkDone(err, false)
		return result
	}

	fetcher, err := bc.newFetcher(id, cfg)
	if err != nil {
		result.Error = fmt.Errorf("创建抓取器失败: %w", err)
		task.MarkDone(result.Error, false)
		return result
	}

	opts := []Option{WithProgress(bc.progress)}
	if bc.monitor != nil {
		opts = append(opts, WithMonitor(bc.monitor))
	}
	crawler := NewCrawler(src, fetcher, cfg, opts...)

	task.MarkRunning()
	articles, err := crawler.Run(ctx, window)
	task.Stats = crawler.Stats()
	cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	task.MarkDone(err, cancelled)

	result.Articles = articles
	result.Error = err
	return result
}

// printSummary 打印对齐的统计表
func (bc *BatchCrawler) printSummary(summary *BatchSummary) {
	headers := []string{"新闻源", "状态", "探测", "列表页", "失败页", "文章", "过滤", "保留", "耗时"}
	rows := [][]string{headers}

	for _, r := range summary.Results {
		status := string(models.TaskStatusFailed)
		var stats models.TaskStats
		if r.Task != nil {
			status = string(r.Task.Status)
			stats = r.Task.Stats
		}
		rows = append(rows, []string{
			string(r.Source),
			status,
			fmt.Sprint(stats.Probes),
			fmt.Sprintf("%d/%d", stats.PagesFetched, stats.PagesPlanned),
			fmt.Sprint(stats.PagesFailed),
			fmt.Sprint(stats.ArticlesFetched),
			fmt.Sprint(stats.ArticlesFiltered),
			fmt.Sprint(stats.ArticlesKept),
			utils.FormatDuration(time.Duration(stats.Duration * float64(time.Second))),
		})
	}

	fmt.Fprintln(bc.summaryOut, "📊 抓取摘要")
	fmt.Fprint(bc.summaryOut, FormatTable(rows))
	fmt.Fprintf(bc.summaryOut, "共 %d 篇文章, 总耗时 %s\n",
		summary.TotalArticles(),
		utils.FormatDuration(time.Duration(summary.Report.Duration*float64(time.Second))))
}

// FormatTable 按显示宽度对齐表格,兼容中文与重音字符
func FormatTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	var sb strings.Builder
	for r, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(cell)
			} else {
				sb.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		sb.WriteString("\n")
		if r == 0 {
			total := 0
			for _, w := range widths {
				total += w
			}
			sb.WriteString(strings.Repeat("-", total+2*(len(widths)-1)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
