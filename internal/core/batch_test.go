package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newsServer 模拟Emol搜索API与Cooperativa按日列表
func newsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	// Emol: 偏移0为最新,偏移i的日期为 2024-01-20 减 i 天
	const emolTotal = 10
	mux.HandleFunc("/emol", func(w http.ResponseWriter, r *http.Request) {
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		from, _ := strconv.Atoi(r.URL.Query().Get("from"))

		type source struct {
			Titulo           string `json:"titulo"`
			FechaPublicacion string `json:"fechaPublicacion"`
			Permalink        string `json:"permalink"`
			Texto            string `json:"texto"`
		}
		type hit struct {
			Source source `json:"_source"`
		}
		var hits []hit
		for i := from; i < from+size && i < emolTotal; i++ {
			d := time.Date(2024, 1, 20-i, 0, 0, 0, 0, time.UTC)
			hits = append(hits, hit{Source: source{
				Titulo:           fmt.Sprintf("Nota %d", i),
				FechaPublicacion: d.Format("2006-01-02") + "T10:00:00",
				Permalink:        fmt.Sprintf("https://www.emol.com/noticias/%d.html", i),
				Texto:            "<p>Cuerpo</p>",
			}})
		}

		resp := map[string]any{"hits": map[string]any{
			"total": map[string]int{"value": emolTotal},
			"hits":  hits,
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/coop/noticias/site/cache/nroedic/todas/20240114.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="art-todas">
<a href="/coop/noticias/pais/nota/2024-01-14/090000.html">Nota</a>
<a href="/coop/noticias/pais/nota/2024-01-14/090000.html#comentarios">Nota</a>
</div></body></html>`)
	})
	mux.HandleFunc("/coop/noticias/pais/nota/2024-01-14/090000.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1 class="titular">Título</h1>
<div class="contenedor-cuerpo"><div class="cuerpo-articulo"><p>Texto.</p></div></div></body></html>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testBatchConfig(srv *httptest.Server, ids ...models.SourceID) *Config {
	cfg := DefaultConfig()
	cfg.Crawl.MaxRetries = 0
	cfg.Crawl.RetryDelay = time.Millisecond
	cfg.Crawl.Timeout = 5 * time.Second
	cfg.MergeCLIFlags(Overrides{Sources: ids, BlockSize: 1, BlockDelay: time.Millisecond})

	emol := cfg.Sources[models.SourceEmol.Key()]
	emol.BaseURL = srv.URL + "/emol"
	emol.ArticlesPerRequest = 3
	cfg.Sources[models.SourceEmol.Key()] = emol

	coop := cfg.Sources[models.SourceCooperativa.Key()]
	coop.BaseURL = srv.URL + "/coop"
	cfg.Sources[models.SourceCooperativa.Key()] = coop
	return cfg
}

func testWindow(t *testing.T) models.DateWindow {
	t.Helper()
	w, err := models.ParseDateWindow("2024-01-14", "2024-01-15", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return w
}

func TestBatchCrawler_EndToEnd(t *testing.T) {
	srv := newsServer(t)
	cfg := testBatchConfig(srv, models.SourceEmol, models.SourceCooperativa)

	hm, err := NewHeaderManager(nil, nil)
	require.NoError(t, err)

	bc := NewBatchCrawler(cfg, HTTPFetcherFactory(hm), nil, nil)
	var out bytes.Buffer
	bc.SetSummaryOutput(&out)

	summary, err := bc.Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	grouped := summary.Articles()
	require.Len(t, grouped[models.SourceEmol], 2)
	var dates []string
	for _, a := range grouped[models.SourceEmol] {
		dates = append(dates, a.DateString())
	}
	assert.ElementsMatch(t, []string{"2024-01-14", "2024-01-15"}, dates)

	require.Len(t, grouped[models.SourceCooperativa], 1)
	coop := grouped[models.SourceCooperativa][0]
	assert.Equal(t, "2024-01-14", coop.DateString())
	assert.Equal(t, "Título", coop.Title.OrElse(""))

	assert.Equal(t, 3, summary.TotalArticles())
	require.Len(t, summary.Report.Tasks, 2)
	for _, task := range summary.Report.Tasks {
		assert.Equal(t, models.TaskStatusCompleted, task.Status, task.Source)
	}

	emolTask := summary.Report.Tasks[0]
	assert.Equal(t, models.SourceEmol, emolTask.Source)
	assert.Greater(t, emolTask.Stats.Probes, 0)
	assert.Equal(t, 2, emolTask.Stats.PagesPlanned)
	assert.Equal(t, 2, emolTask.Stats.ArticlesFiltered, "区间两端各多出一篇")

	coopTask := summary.Report.Tasks[1]
	assert.Equal(t, 1, coopTask.Stats.PagesFailed, "20240115 列表页不存在")
	assert.Equal(t, 1, coopTask.Stats.ArticlesFetched, "锚点不同的同一链接只抓一次")

	assert.Contains(t, out.String(), "EMOL")
	assert.Contains(t, out.String(), "共 3 篇文章")
}

func TestBatchCrawler_SourceFailureDoesNotStopOthers(t *testing.T) {
	srv := newsServer(t)
	cfg := testBatchConfig(srv, models.SourceEmol, models.SourceCooperativa)

	hm, err := NewHeaderManager(nil, nil)
	require.NoError(t, err)
	httpFactory := HTTPFetcherFactory(hm)
	factory := func(id models.SourceID, cc models.CrawlConfig) (Fetcher, error) {
		if id == models.SourceEmol {
			return nil, errors.New("boom")
		}
		return httpFactory(id, cc)
	}

	summary, err := NewBatchCrawler(cfg, factory, nil, nil).Run(context.Background(), testWindow(t))
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Error(t, summary.Results[0].Error)
	assert.Equal(t, models.TaskStatusFailed, summary.Results[0].Task.Status)
	assert.NoError(t, summary.Results[1].Error)
	assert.Len(t, summary.Results[1].Articles, 1)
	assert.NotContains(t, summary.Articles(), models.SourceEmol)
}

func TestBatchCrawler_Cancelled(t *testing.T) {
	srv := newsServer(t)
	cfg := testBatchConfig(srv, models.SourceEmol, models.SourceCooperativa)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hm, err := NewHeaderManager(nil, nil)
	require.NoError(t, err)
	summary, err := NewBatchCrawler(cfg, HTTPFetcherFactory(hm), nil, nil).Run(ctx, testWindow(t))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, summary.Results, 1, "取消后不再抓取后续新闻源")
	assert.Equal(t, models.TaskStatusCancelled, summary.Results[0].Task.Status)
}

func TestFormatTable(t *testing.T) {
	table := FormatTable([][]string{
		{"新闻源", "保留"},
		{"EMOL", "12"},
		{"COOPERATIVA", "3"},
	})

	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	require.Len(t, lines, 4)
	// "新闻源" 显示宽度为6, 列宽取最长的 COOPERATIVA
	assert.Equal(t, "新闻源       保留", lines[0])
	assert.Equal(t, strings.Repeat("-", 11+2+4), lines[1])
	assert.Equal(t, "EMOL         12", lines[2])
	assert.Equal(t, "COOPERATIVA  3", lines[3])
	assert.Empty(t, FormatTable(nil))
}
