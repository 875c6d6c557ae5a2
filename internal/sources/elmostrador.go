package sources

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

const elMostradorBase = "https://www.elmostrador.cl"

// ElMostrador 分页HTML列表,支持按日期二分查找
type ElMostrador struct {
	base  string
	rules crawlers.ListingRules
}

// NewElMostrador 创建El Mostrador适配器
func NewElMostrador(opts Options) *ElMostrador {
	base := baseOr(opts.BaseURL, elMostradorBase)
	return &ElMostrador{
		base: base,
		rules: crawlers.ListingRules{
			PaginationSelector: ".the-pagination .the-pagination__item",
			LinkSelector:       ".d-section__body .d-tag-card__title .d-tag-card__permalink",
			BaseURL:            base,
			DateSelector:       ".d-section__body .d-tag-card .d-tag-card__date",
			DateAttr:           "datetime",
			DateParser:         crawlers.LayoutParser("02-01-2006", "2006-01-02"),
		},
	}
}

func (s *ElMostrador) ID() models.SourceID { return models.SourceElMostrador }

func (s *ElMostrador) pageURL(n int) string {
	return fmt.Sprintf("%s/categoria/dia/page/%d/", s.base, n)
}

func (s *ElMostrador) TotalURL() string          { return s.pageURL(1) }
func (s *ElMostrador) ProbeURL(index int) string { return s.pageURL(index) }
func (s *ElMostrador) DateSearch() bool          { return true }

func (s *ElMostrador) SearchBounds(total int) (int, int) {
	return 1, total
}

func (s *ElMostrador) ListingURLs(r models.IndexRange) []string {
	pages := r.OldestFirst()
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, s.pageURL(p))
	}
	return urls
}

func (s *ElMostrador) ParseListing(content []byte) models.ListingPage {
	return s.rules.Parse(content)
}

func (s *ElMostrador) ParseArticle(url string, content []byte) *models.Article {
	doc, err := crawlers.ParseHTML(content)
	if err != nil {
		return nil
	}

	a := models.NewArticle(s.ID(), url)

	author := crawlers.Text(doc, ".the-by__permalink")
	if author == "" {
		author = crawlers.Text(doc, ".the-single-author__permalink")
		if sub := crawlers.Text(doc, ".the-single-author__subtitle"); author != "" && sub != "" {
			author += ", " + sub
		}
	}
	a.Author = models.OptionalText(author)

	a.PublishedAt = optionalDate(crawlers.LayoutParser("2006-01-02")(crawlers.Attr(doc, ".d-the-single__date", "datetime")))
	a.Tag = models.OptionalText(crawlers.Text(doc, ".d-the-single-media__bag"))
	a.Title = models.OptionalText(crawlers.Text(doc, ".d-the-single__title"))
	a.Excerpt = models.OptionalText(crawlers.Text(doc, ".d-the-single__excerpt"))

	body := crawlers.BlockTextWith(doc.Find(".d-the-single-wrapper__text"), "h3, p, li",
		"iframe", "script", "blockquote", "div.responsive-container", "div.the-single-cards")
	a.Body = models.OptionalText(dropPromptLines(body, "Inscríbete"))

	return a
}

// dropPromptLines 去除以订阅提示开头的行
func dropPromptLines(body string, prefixes ...string) string {
	if body == "" {
		return ""
	}
	paragraphs := strings.Split(body, "\n")
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		skip := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
