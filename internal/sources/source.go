// Package sources 实现各新闻源的适配器
package sources

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/newscrawl/internal/models"
)

// Source 新闻源适配器
// 解析失败时返回空结果,不返回错误
type Source interface {
	ID() models.SourceID
	// ParseListing 解析列表页(或API分页)内容
	ParseListing(content []byte) models.ListingPage
	// ParseArticle 解析文章详情页,无法解析时返回nil
	ParseArticle(url string, content []byte) *models.Article
}

// Paginated 按页码(或偏移量)分页的新闻源
// 索引越大内容越旧
type Paginated interface {
	Source
	// TotalURL 用于获取总数的URL
	TotalURL() string
	// ProbeURL 二分查找时探测某个索引所用的URL
	ProbeURL(index int) string
	// SearchBounds 根据总数给出搜索区间
	SearchBounds(total int) (lo, hi int)
	// ListingURLs 区间内的列表URL,最旧的在前
	ListingURLs(r models.IndexRange) []string
	// DateSearch 是否支持按边界日期二分查找
	DateSearch() bool
}

// Daily 按日期组织列表页的新闻源
type Daily interface {
	Source
	// DayURLs 窗口内每天一个列表URL,最旧的在前
	DayURLs(w models.DateWindow) []string
}

// Options 适配器配置
type Options struct {
	// BaseURL 覆盖默认站点地址,为空时使用默认值
	BaseURL string
	// ArticlesPerRequest API每次请求的文章数
	ArticlesPerRequest int
}

// New 按标识创建适配器
func New(id models.SourceID, opts Options) (Source, error) {
	switch id {
	case models.SourceElMostrador:
		return NewElMostrador(opts), nil
	case models.SourceEmol:
		return NewEmol(opts), nil
	case models.SourceTVN:
		return NewTVN(opts), nil
	case models.SourceCooperativa:
		return NewCooperativa(opts), nil
	default:
		return nil, fmt.Errorf("未知的新闻源: %s", id)
	}
}

// DefaultBaseURL 各新闻源的默认站点地址
func DefaultBaseURL(id models.SourceID) string {
	switch id {
	case models.SourceElMostrador:
		return elMostradorBase
	case models.SourceEmol:
		return emolBase
	case models.SourceTVN:
		return tvnBase
	case models.SourceCooperativa:
		return cooperativaBase
	default:
		return ""
	}
}

// Kind 适配器的列表组织方式,用于展示
func Kind(s Source) string {
	switch v := s.(type) {
	case Paginated:
		if v.DateSearch() {
			return "paginated+search"
		}
		return "paginated"
	case Daily:
		return "daily"
	default:
		return "unknown"
	}
}

func baseOr(base, fallback string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return fallback
	}
	return base
}
