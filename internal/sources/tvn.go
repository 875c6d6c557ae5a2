package sources

import (
	"fmt"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

const tvnBase = "https://www.tvn.cl"

// TVN 分页HTML列表,列表页不带日期,需抓取全部页面后按日期过滤
type TVN struct {
	base  string
	rules crawlers.ListingRules
}

// NewTVN 创建TVN适配器
func NewTVN(opts Options) *TVN {
	base := baseOr(opts.BaseURL, tvnBase)
	return &TVN{
		base: base,
		rules: crawlers.ListingRules{
			PaginationSelector: ".auxi .wp-pagenavi a",
			LinkSelector:       ".auxi .row article a",
			BaseURL:            base,
		},
	}
}

func (s *TVN) ID() models.SourceID { return models.SourceTVN }

func (s *TVN) pageURL(n int) string {
	return fmt.Sprintf("%s/noticias/p/%d/", s.base, n)
}

func (s *TVN) TotalURL() string          { return s.pageURL(1) }
func (s *TVN) ProbeURL(index int) string { return s.pageURL(index) }
func (s *TVN) DateSearch() bool          { return false }

func (s *TVN) SearchBounds(total int) (int, int) {
	return 1, total
}

func (s *TVN) ListingURLs(r models.IndexRange) []string {
	pages := r.OldestFirst()
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, s.pageURL(p))
	}
	return urls
}

func (s *TVN) ParseListing(content []byte) models.ListingPage {
	return s.rules.Parse(content)
}

func (s *TVN) ParseArticle(url string, content []byte) *models.Article {
	doc, err := crawlers.ParseHTML(content)
	if err != nil {
		return nil
	}

	a := models.NewArticle(s.ID(), url)

	author := crawlers.Text(doc, ".cont-credits .author")
	if credit := crawlers.Text(doc, ".cont-credits .credit"); author != "" && credit != "" {
		author += ", " + credit
	}
	a.Author = models.OptionalText(author)

	a.PublishedAt = optionalDate(parseSpanishDate(crawlers.Text(doc, ".toolbar .fecha")))
	a.Tag = models.OptionalText(crawlers.NormalizeSpace(doc.Find(".breadcrumbs .breadcrumb a").Last().Text()))
	a.Title = models.OptionalText(crawlers.Text(doc, ".tit"))
	a.Drophead = models.OptionalText(crawlers.Text(doc, ".baj"))
	a.Body = models.OptionalText(crawlers.BlockText(doc.Find(".CUERPO"),
		"iframe", "script", "blockquote", "div.prontus-card-container"))

	return a
}
