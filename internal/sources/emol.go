package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

const (
	emolBase = "https://newsapi.ecn.cl/NewsApi/emol/buscador/emol"

	defaultArticlesPerRequest = 500
)

// emolResponse 搜索API响应
type emolResponse struct {
	Hits struct {
		Total emolTotal `json:"total"`
		Hits  []struct {
			Source emolDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// emolTotal 兼容 "total": 123 与 "total": {"value": 123}
type emolTotal int

func (t *emolTotal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		*t = emolTotal(wrapped.Value)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = emolTotal(n)
	return nil
}

type emolDocument struct {
	Autor            string `json:"autor"`
	Author           string `json:"author"`
	Seccion          string `json:"seccion"`
	SubSeccion       string `json:"subSeccion"`
	FechaPublicacion string `json:"fechaPublicacion"`
	Titulo           string `json:"titulo"`
	Bajada           []struct {
		Texto string `json:"texto"`
	} `json:"bajada"`
	Texto     string `json:"texto"`
	Permalink string `json:"permalink"`
}

// Emol JSON搜索API,按文章偏移量分页
// 文章内容直接包含在分页结果中,无需再抓详情页
type Emol struct {
	base    string
	perPage int
}

// NewEmol 创建Emol适配器
func NewEmol(opts Options) *Emol {
	per := opts.ArticlesPerRequest
	if per <= 0 {
		per = defaultArticlesPerRequest
	}
	return &Emol{
		base:    baseOr(opts.BaseURL, emolBase),
		perPage: per,
	}
}

func (s *Emol) ID() models.SourceID { return models.SourceEmol }

func (s *Emol) searchURL(size, from int) string {
	return fmt.Sprintf("%s?size=%d&from=%d", s.base, size, from)
}

func (s *Emol) TotalURL() string          { return s.searchURL(1, 0) }
func (s *Emol) ProbeURL(index int) string { return s.searchURL(1, index) }
func (s *Emol) DateSearch() bool          { return true }

// SearchBounds 偏移量从0开始
func (s *Emol) SearchBounds(total int) (int, int) {
	return 0, total - 1
}

// ListingURLs 将偏移区间 [End, Start] 切分为多次请求,最旧的一批在前
func (s *Emol) ListingURLs(r models.IndexRange) []string {
	if r.Empty() {
		return nil
	}
	var urls []string
	for from := r.End; from <= r.Start; from += s.perPage {
		size := s.perPage
		if rest := r.Start - from + 1; rest < size {
			size = rest
		}
		urls = append(urls, s.searchURL(size, from))
	}
	for i, j := 0, len(urls)-1; i < j; i, j = i+1, j-1 {
		urls[i], urls[j] = urls[j], urls[i]
	}
	return urls
}

func (s *Emol) ParseListing(content []byte) models.ListingPage {
	page := models.ListingPage{
		TotalPages:   models.None[int](),
		BoundaryDate: models.None[time.Time](),
	}

	var resp emolResponse
	if err := json.Unmarshal(content, &resp); err != nil {
		return page
	}

	page.TotalPages = models.Some(int(resp.Hits.Total))
	for _, hit := range resp.Hits.Hits {
		if a := s.article(hit.Source); a != nil {
			page.Articles = append(page.Articles, a)
		}
	}
	if n := len(resp.Hits.Hits); n > 0 {
		page.BoundaryDate = optionalDate(parseEmolDate(resp.Hits.Hits[n-1].Source.FechaPublicacion))
	}
	return page
}

// ParseArticle 解析单篇文章的JSON文档
func (s *Emol) ParseArticle(url string, content []byte) *models.Article {
	var doc emolDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil
	}
	if doc.Permalink == "" {
		doc.Permalink = url
	}
	return s.article(doc)
}

func (s *Emol) article(doc emolDocument) *models.Article {
	if strings.TrimSpace(doc.Permalink) == "" {
		return nil
	}
	a := models.NewArticle(s.ID(), strings.TrimSpace(doc.Permalink))

	author := doc.Autor
	if author == "" {
		author = doc.Author
	}
	a.Author = models.OptionalText(author)
	a.PublishedAt = optionalDate(parseEmolDate(doc.FechaPublicacion))

	tag := doc.SubSeccion
	if strings.TrimSpace(tag) == "" {
		tag = doc.Seccion
	}
	a.Tag = models.OptionalText(tag)
	a.Title = models.OptionalText(doc.Titulo)
	if len(doc.Bajada) > 0 {
		a.Drophead = models.OptionalText(crawlers.FragmentText(doc.Bajada[0].Texto))
	}
	a.Body = models.OptionalText(crawlers.FragmentText(doc.Texto, "iframe", "script", "blockquote"))
	return a
}

// parseEmolDate 取 fechaPublicacion 中 T 之前的日期部分
func parseEmolDate(raw string) (time.Time, bool) {
	datePart, _, _ := strings.Cut(strings.TrimSpace(raw), "T")
	t, err := models.ParseDay(models.DateLayout, datePart)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
