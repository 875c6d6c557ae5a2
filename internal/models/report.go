package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunReport 一次运行的报告
type RunReport struct {
	// 运行信息
	RunID string `json:"run_id"`
	Start string `json:"start"`
	End   string `json:"end"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 各新闻源任务
	Tasks []*CrawlTask `json:"tasks"`

	// 汇总
	Totals        TaskStats `json:"totals"`
	TotalArticles int       `json:"total_articles"`

	// 输出
	OutputFile string `json:"output_file,omitempty"`
	Storage    string `json:"storage,omitempty"`

	// 主机资源
	Host *HostSnapshot `json:"host,omitempty"`
}

// HostSnapshot 运行期间的主机内存采样
type HostSnapshot struct {
	TotalMemory     uint64  `json:"total_memory"`
	PeakUsedPercent float64 `json:"peak_used_percent"`
	Samples         int     `json:"samples"`
}

// NewRunReport 创建运行报告
func NewRunReport(window DateWindow) *RunReport {
	return &RunReport{
		RunID:     generateID(),
		Start:     window.Start.Format(DateLayout),
		End:       window.End.Format(DateLayout),
		StartTime: time.Now(),
	}
}

// AddTask 记录任务并累加统计
func (r *RunReport) AddTask(task *CrawlTask) {
	r.Tasks = append(r.Tasks, task)
	r.Totals.Merge(task.Stats)
	r.TotalArticles += task.Stats.ArticlesKept
}

// Finish 记录结束时间
func (r *RunReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime).Seconds()
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}

func generateID() string {
	return uuid.New().String()
}
