package sources

import (
	"net/url"
	"strings"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

const cooperativaBase = "https://www.cooperativa.cl"

// Cooperativa 每天一个列表页,无需二分查找
type Cooperativa struct {
	base  string
	rules crawlers.ListingRules
}

// NewCooperativa 创建Cooperativa适配器
func NewCooperativa(opts Options) *Cooperativa {
	base := baseOr(opts.BaseURL, cooperativaBase)
	return &Cooperativa{
		base: base,
		rules: crawlers.ListingRules{
			LinkSelector: ".art-todas a",
			BaseURL:      base,
		},
	}
}

func (s *Cooperativa) ID() models.SourceID { return models.SourceCooperativa }

func (s *Cooperativa) DayURLs(w models.DateWindow) []string {
	days := w.Days()
	urls := make([]string, 0, len(days))
	for _, d := range days {
		urls = append(urls, s.base+"/noticias/site/cache/nroedic/todas/"+d.Format("20060102")+".html")
	}
	return urls
}

func (s *Cooperativa) ParseListing(content []byte) models.ListingPage {
	return s.rules.Parse(content)
}

func (s *Cooperativa) ParseArticle(rawURL string, content []byte) *models.Article {
	doc, err := crawlers.ParseHTML(content)
	if err != nil {
		return nil
	}

	a := models.NewArticle(s.ID(), rawURL)
	segments := pathSegments(rawURL)

	a.Author = models.OptionalText(crawlers.Text(doc, ".fecha-publicacion span"))

	if d, ok := dateFromPath(segments); ok {
		a.PublishedAt = optionalDate(d, true)
	} else {
		a.PublishedAt = optionalDate(parseSpanishDate(crawlers.Text(doc, ".fecha-publicacion")))
	}

	tag := crawlers.NormalizeSpace(doc.Find(".rotulo-topicos a span").First().Text())
	if tag == "" && len(segments) > 1 {
		// /noticias/<seccion>/...
		tag = segments[1]
	}
	a.Tag = models.OptionalText(tag)

	a.Title = models.OptionalText(crawlers.Text(doc, "h1.titular"))
	a.Drophead = models.OptionalText(crawlers.Text(doc, ".contenedor-bajada .texto-bajada"))

	body := doc.Find(".contenedor-cuerpo .cuerpo-articulo")
	if body.Length() == 0 {
		body = doc.Find(".contenedor-cuerpo")
	}
	a.Body = models.OptionalText(crawlers.BlockText(body, "iframe", "script", "blockquote", "p.prompt"))

	return a
}

// pathSegments URL路径中的非空段
func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
