package crawlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

// DateParser 将页面上的日期文本解析为日期
type DateParser func(raw string) (time.Time, bool)

// LayoutParser 用固定layout解析日期
func LayoutParser(layouts ...string) DateParser {
	return func(raw string) (time.Time, bool) {
		raw = strings.TrimSpace(raw)
		for _, layout := range layouts {
			// 只截取与layout等长的前缀,容忍时区等尾部内容
			candidate := raw
			if len(candidate) > len(layout) {
				candidate = candidate[:len(layout)]
			}
			if t, err := time.Parse(layout, candidate); err == nil {
				return models.Day(t), true
			}
		}
		return time.Time{}, false
	}
}

// ListingRules 列表页解析规则
type ListingRules struct {
	// PaginationSelector 分页控件链接,取最后一个的页码作为总页数
	PaginationSelector string
	// LinkSelector 文章链接
	LinkSelector string
	// BaseURL 相对链接的基准
	BaseURL string
	// DateSelector 文章日期,取最后一个作为边界日期
	DateSelector string
	// DateAttr 日期所在属性,为空时取文本
	DateAttr string
	DateParser DateParser
}

// Parse 解析列表页
// 任一字段缺失时对应结果为空,不返回错误
func (r ListingRules) Parse(content []byte) models.ListingPage {
	page := models.ListingPage{
		TotalPages:   models.None[int](),
		BoundaryDate: models.None[time.Time](),
	}

	doc, err := ParseHTML(content)
	if err != nil {
		return page
	}

	if r.PaginationSelector != "" {
		if href, ok := doc.Find(r.PaginationSelector).Last().Attr("href"); ok {
			if n, ok := PageNumber(href); ok {
				page.TotalPages = models.Some(n)
			}
		}
	}

	if r.LinkSelector != "" {
		page.ArticleURLs = r.links(doc)
	}

	if r.DateSelector != "" && r.DateParser != nil {
		last := doc.Find(r.DateSelector).Last()
		raw := last.Text()
		if r.DateAttr != "" {
			raw, _ = last.Attr(r.DateAttr)
		}
		if d, ok := r.DateParser(raw); ok {
			page.BoundaryDate = models.Some(d)
		}
	}

	return page
}

func (r ListingRules) links(doc *goquery.Document) []string {
	base, _ := url.Parse(r.BaseURL)
	seen := make(map[string]struct{})
	var urls []string

	doc.Find(r.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs := ResolveURL(base, href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	})
	return urls
}

// ResolveURL 将href解析为绝对URL,无法解析时返回空串
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil && !ref.IsAbs() {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}

// PageNumber 取链接路径中最后一个数字段作为页码
func PageNumber(href string) (int, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return 0, false
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if n, err := strconv.Atoi(segments[i]); err == nil && n > 0 {
			return n, true
		}
	}
	if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}
