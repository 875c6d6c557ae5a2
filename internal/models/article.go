package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SourceID 新闻源标识
type SourceID string

const (
	SourceCooperativa SourceID = "COOPERATIVA"  // Cooperativa.cl 按日列表
	SourceElMostrador SourceID = "EL_MOSTRADOR" // El Mostrador 分页列表
	SourceEmol        SourceID = "EMOL"         // Emol 搜索API
	SourceTVN         SourceID = "TVN"          // TVN 分页列表
)

// AllSources 所有已知新闻源(固定顺序,导出时按此顺序生成工作表)
var AllSources = []SourceID{
	SourceCooperativa,
	SourceElMostrador,
	SourceEmol,
	SourceTVN,
}

// ParseSourceID 解析新闻源标识,不区分大小写,允许连字符
func ParseSourceID(s string) (SourceID, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, id := range AllSources {
		if string(id) == normalized {
			return id, nil
		}
	}
	return "", &ValidationError{
		Field:      "source",
		Value:      s,
		Reason:     "未知的新闻源",
		Suggestion: fmt.Sprintf("可选值: %s", joinSources(AllSources)),
	}
}

// Key 返回配置文件中使用的小写键名
func (id SourceID) Key() string {
	return strings.ToLower(string(id))
}

func joinSources(ids []SourceID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// Optional 可缺省字段
type Optional[T any] struct {
	value T
	ok    bool
}

// Some 构造一个有值的Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None 构造一个空的Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get 返回值和是否存在
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome 是否有值
func (o Optional[T]) IsSome() bool {
	return o.ok
}

// OrElse 不存在时返回fallback
func (o Optional[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

// OptionalText 将空白字符串视为缺失
func OptionalText(s string) Optional[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// Article 文章记录
// Source 和 URL 必定存在,其余字段尽力提取
type Article struct {
	Source      SourceID
	URL         string
	Author      Optional[string]
	PublishedAt Optional[time.Time] // 仅日期精度
	Tag         Optional[string]
	Title       Optional[string]
	Drophead    Optional[string]
	Excerpt     Optional[string]
	Body        Optional[string]
}

// NewArticle 创建文章记录
func NewArticle(source SourceID, url string) *Article {
	return &Article{Source: source, URL: url}
}

// DateString 返回yyyy-mm-dd格式日期,缺失时为空字符串
func (a *Article) DateString() string {
	if d, ok := a.PublishedAt.Get(); ok {
		return d.Format(DateLayout)
	}
	return ""
}

// ValidateURL 验证来源地址或文章链接
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL缺少主机名: %s", raw)
	}
	return nil
}
