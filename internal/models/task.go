package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
	TaskStatusCancelled TaskStatus = "cancelled" // 已取消
)

// TaskStats 单个新闻源的抓取统计
type TaskStats struct {
	Probes           int     `json:"probes"`            // 二分定位探测次数
	PagesPlanned     int     `json:"pages_planned"`     // 计划抓取的列表单元数
	PagesFetched     int     `json:"pages_fetched"`     // 成功抓取的列表单元数
	PagesFailed      int     `json:"pages_failed"`      // 失败的列表单元数
	Blocks           int     `json:"blocks"`            // 已完成的块数
	Duplicates       int     `json:"duplicates"`        // 重复链接数
	UniqueURLs       int     `json:"unique_urls"`       // 去重后的文章链接数
	Undated          int     `json:"undated"`           // 无发布日期的文章数
	ArticlesFetched  int     `json:"articles_fetched"`  // 成功解析的文章数
	ArticlesFailed   int     `json:"articles_failed"`   // 抓取失败的文章数
	ArticlesFiltered int     `json:"articles_filtered"` // 被日期过滤掉的文章数
	ArticlesKept     int     `json:"articles_kept"`     // 保留的文章数
	Duration         float64 `json:"duration"`          // 总耗时(秒)
}

// Merge 累加另一份统计
func (s *TaskStats) Merge(other TaskStats) {
	s.Probes += other.Probes
	s.PagesPlanned += other.PagesPlanned
	s.PagesFetched += other.PagesFetched
	s.PagesFailed += other.PagesFailed
	s.Blocks += other.Blocks
	s.Duplicates += other.Duplicates
	s.UniqueURLs += other.UniqueURLs
	s.Undated += other.Undated
	s.ArticlesFetched += other.ArticlesFetched
	s.ArticlesFailed += other.ArticlesFailed
	s.ArticlesFiltered += other.ArticlesFiltered
	s.ArticlesKept += other.ArticlesKept
	s.Duration += other.Duration
}

// CrawlConfig 单个新闻源的抓取配置
type CrawlConfig struct {
	BlockSize          int           `mapstructure:"block_size" json:"block_size" yaml:"block_size"`                               // 每块列表单元数
	BlockDelay         time.Duration `mapstructure:"block_delay" json:"block_delay" yaml:"block_delay"`                            // 块间延迟
	MaxRetries         int           `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`                            // 最大重试次数
	RetryDelay         time.Duration `mapstructure:"retry_delay" json:"retry_delay" yaml:"retry_delay"`                            // 重试间隔(固定)
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`                                        // 单次请求超时
	MaxConcurrent      int           `mapstructure:"max_concurrent" json:"max_concurrent" yaml:"max_concurrent"`                   // 块内并发上限,0为不限
	StrictDate         bool          `mapstructure:"strict_date" json:"strict_date" yaml:"strict_date"`                            // 丢弃无日期文章
	ArticlesPerRequest int           `mapstructure:"articles_per_request" json:"articles_per_request" yaml:"articles_per_request"` // API来源每次请求条数
}

// DefaultCrawlConfig 默认抓取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		BlockSize:          20,
		BlockDelay:         10 * time.Second,
		MaxRetries:         3,
		RetryDelay:         5 * time.Second,
		Timeout:            30 * time.Second,
		MaxConcurrent:      0,
		StrictDate:         true,
		ArticlesPerRequest: 500,
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.BlockSize < 1 || c.BlockSize > 1000 {
		return &ValidationError{Field: "block_size", Value: fmt.Sprint(c.BlockSize), Reason: "块大小必须在1-1000之间"}
	}
	if c.BlockDelay <= 0 {
		return &ValidationError{Field: "block_delay", Value: c.BlockDelay.String(), Reason: "块间延迟必须大于0"}
	}
	if c.MaxRetries < 0 || c.MaxRetries > 20 {
		return &ValidationError{Field: "max_retries", Value: fmt.Sprint(c.MaxRetries), Reason: "重试次数必须在0-20之间"}
	}
	if c.RetryDelay < 0 {
		return &ValidationError{Field: "retry_delay", Value: c.RetryDelay.String(), Reason: "重试间隔不能为负"}
	}
	if c.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Value: c.Timeout.String(), Reason: "请求超时必须大于0"}
	}
	if c.MaxConcurrent < 0 {
		return &ValidationError{Field: "max_concurrent", Value: fmt.Sprint(c.MaxConcurrent), Reason: "并发上限不能为负"}
	}
	if c.ArticlesPerRequest < 1 {
		return &ValidationError{Field: "articles_per_request", Value: fmt.Sprint(c.ArticlesPerRequest), Reason: "每次请求条数必须大于0"}
	}
	return nil
}

// CrawlTask 单个新闻源的抓取任务
type CrawlTask struct {
	// 基本信息
	ID          string     `json:"id"` // 任务唯一ID (UUID)
	Source      SourceID   `json:"source"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// 配置参数
	Config CrawlConfig `json:"config"`

	// 执行状态
	Status TaskStatus `json:"status"`
	Stats  TaskStats  `json:"stats"`

	// 错误信息
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewCrawlTask 创建新任务
func NewCrawlTask(source SourceID, window DateWindow, config CrawlConfig) (*CrawlTask, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &CrawlTask{
		ID:        generateID(),
		Source:    source,
		Start:     window.Start.Format(DateLayout),
		End:       window.End.Format(DateLayout),
		CreatedAt: time.Now(),
		Config:    config,
		Status:    TaskStatusPending,
	}, nil
}

// MarkRunning 标记任务开始
func (t *CrawlTask) MarkRunning() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = TaskStatusRunning
}

// MarkDone 根据错误标记任务结束状态
func (t *CrawlTask) MarkDone(err error, cancelled bool) {
	now := time.Now()
	t.CompletedAt = &now
	switch {
	case cancelled:
		t.Status = TaskStatusCancelled
	case err != nil:
		t.Status = TaskStatusFailed
	default:
		t.Status = TaskStatusCompleted
	}
	if err != nil {
		t.ErrorMessage = err.Error()
	}
}

// ToJSON 序列化为JSON
func (t *CrawlTask) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
