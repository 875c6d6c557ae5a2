package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	// maxBodySize 单个响应体上限(API一次返回数百篇全文)
	maxBodySize = 64 * 1024 * 1024

	ctxKeyBody   = "newscrawl.body"
	ctxKeyStatus = "newscrawl.status"
)

var (
	// ErrNotFound 远端返回404,不重试
	ErrNotFound = errors.New("资源不存在")

	// ErrRetriesExhausted 重试次数耗尽
	ErrRetriesExhausted = errors.New("重试次数耗尽")
)

// RetryPolicy 重试策略: 固定间隔,总尝试次数为 MaxRetries+1
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// FetcherOptions 抓取器配置
type FetcherOptions struct {
	Policy      RetryPolicy
	Timeout     time.Duration
	Parallelism int // 同时进行的请求上限,0为不限
	Headers     models.HeaderProvider
	Source      models.SourceID // 仅用于日志
}

// HTTPFetcher 基于Colly的抓取器
// 同步模式的collector可被多个goroutine并发调用,
// 每个请求通过独立的colly.Context取回响应体与状态码
type HTTPFetcher struct {
	collector *colly.Collector
	policy    RetryPolicy
	headers   http.Header
	logger    zerolog.Logger
}

// NewHTTPFetcher 创建抓取器
func NewHTTPFetcher(opts FetcherOptions) (*HTTPFetcher, error) {
	headers := http.Header{}
	if opts.Headers != nil {
		h, err := opts.Headers.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("获取HTTP头部失败: %w", err)
		}
		headers = h
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(DefaultUserAgent),
		colly.MaxBodySize(maxBodySize),
	)

	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	if opts.Parallelism > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: opts.Parallelism,
		}); err != nil {
			return nil, fmt.Errorf("设置并发限制失败: %w", err)
		}
	}

	f := &HTTPFetcher{
		collector: c,
		policy:    opts.Policy,
		headers:   headers,
		logger:    utils.Component("fetcher").With().Str("source", string(opts.Source)).Logger(),
	}
	f.setupCallbacks()
	return f, nil
}

func (f *HTTPFetcher) setupCallbacks() {
	f.collector.OnRequest(func(r *colly.Request) {
		for name, values := range f.headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	f.collector.OnResponse(func(r *colly.Response) {
		body, err := decompressBody(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", r.Request.URL.String()).Msg("解压响应失败,使用原始内容")
			body = r.Body
		}
		r.Ctx.Put(ctxKeyBody, body)
		r.Ctx.Put(ctxKeyStatus, r.StatusCode)
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxKeyStatus, r.StatusCode)
		}
	})
}

// Fetch 抓取URL,失败时返回 (nil, false)
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, bool) {
	body, err := f.Get(ctx, rawURL)
	return body, err == nil
}

// Get 带重试的GET请求
// 执行流程:
//  1. 404 立即返回 ErrNotFound
//  2. 其他失败按固定间隔重试,总尝试次数 MaxRetries+1
//  3. 每次尝试前以及等待期间检查ctx
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("无效的URL [%s]: %w", rawURL, err)
	}

	maxAttempts := f.policy.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, status, err := f.once(rawURL)
		event := f.logger.With().
			Str("url", rawURL).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Int("status", status).
			Logger()

		if err == nil {
			event.Debug().Str("outcome", "ok").Int("bytes", len(body)).Msg("抓取成功")
			return body, nil
		}

		if status == http.StatusNotFound {
			event.Info().Str("outcome", "not_found").Msg("资源不存在,跳过")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
		}

		lastErr = err
		if attempt < maxAttempts {
			event.Warn().Err(err).Str("outcome", "retry").Msgf("抓取失败, %s后重试", f.policy.Backoff)
			if err := sleepContext(ctx, f.policy.Backoff); err != nil {
				return nil, err
			}
		}
	}

	f.logger.Error().
		Str("url", rawURL).
		Int("attempts", maxAttempts).
		Str("outcome", "exhausted").
		Err(lastErr).
		Msg("重试次数耗尽")
	return nil, fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, rawURL, lastErr)
}

// once 执行单次请求,返回响应体与状态码(网络错误时为0)
func (f *HTTPFetcher) once(rawURL string) ([]byte, int, error) {
	cctx := colly.NewContext()
	err := f.collector.Request(http.MethodGet, rawURL, nil, cctx, nil)

	status, _ := cctx.GetAny(ctxKeyStatus).(int)
	if err != nil {
		return nil, status, err
	}
	body, _ := cctx.GetAny(ctxKeyBody).([]byte)
	return body, status, nil
}

// sleepContext 等待d,ctx取消时提前返回
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sleep 可取消的等待,供块间延迟使用
func Sleep(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}

// decompressBody 根据Content-Encoding解压响应体
// gzip 通常已由colly解压,只有仍带gzip魔数时才处理
func decompressBody(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		// 多数服务器发送zlib封装的deflate,少数发送裸deflate
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer zr.Close()
			if decompressed, err := io.ReadAll(zr); err == nil {
				return decompressed, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		decompressed, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer gr.Close()
		decompressed, err := io.ReadAll(gr)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	default:
		return body, nil
	}
}
