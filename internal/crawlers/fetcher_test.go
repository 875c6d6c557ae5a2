package crawlers

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHeaders http.Header

func (h staticHeaders) GetHeaders() (http.Header, error) {
	return http.Header(h), nil
}

func newTestFetcher(t *testing.T, maxRetries int) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(FetcherOptions{
		Policy:  RetryPolicy{MaxRetries: maxRetries, Backoff: time.Millisecond},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return f
}

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, ok := newTestFetcher(t, 3).Fetch(context.Background(), srv.URL)
	require.True(t, ok)
	assert.Equal(t, "<html>ok</html>", string(body))
}

func TestHTTPFetcher_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	body, err := newTestFetcher(t, 3).Get(context.Background(), srv.URL)
	assert.Nil(t, body)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int32(1), hits.Load(), "404只应请求一次")
}

func TestHTTPFetcher_RecoversAfterTransientFailures(t *testing.T) {
	tests := []struct {
		name     string
		failures int32
	}{
		{"失败1次", 1},
		{"失败2次", 2},
		{"失败3次", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) <= tt.failures {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.Write([]byte("fine"))
			}))
			defer srv.Close()

			body, ok := newTestFetcher(t, 3).Fetch(context.Background(), srv.URL)
			require.True(t, ok)
			assert.Equal(t, "fine", string(body))
			assert.Equal(t, tt.failures+1, hits.Load())
		})
	}
}

func TestHTTPFetcher_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 2).Get(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, int32(3), hits.Load(), "总尝试次数应为 MaxRetries+1")
}

func TestHTTPFetcher_ZeroRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, ok := newTestFetcher(t, 0).Fetch(context.Background(), srv.URL)
	assert.False(t, ok)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPFetcher_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(FetcherOptions{
		Policy: RetryPolicy{MaxRetries: 5, Backoff: time.Minute},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err = f.Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 10*time.Second)
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	_, err := newTestFetcher(t, 3).Get(context.Background(), "not a url")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
}

func TestHTTPFetcher_SendsConfiguredHeaders(t *testing.T) {
	var gotUA, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Test")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(FetcherOptions{
		Headers: staticHeaders{
			"User-Agent": {"NewsBot/1.0"},
			"X-Test":     {"yes"},
		},
	})
	require.NoError(t, err)

	_, ok := f.Fetch(context.Background(), srv.URL)
	require.True(t, ok)
	assert.Equal(t, "NewsBot/1.0", gotUA)
	assert.Equal(t, "yes", gotCustom)
}

func TestDecompressBody(t *testing.T) {
	plain := []byte("hola mundo, noticias de hoy")

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(plain)
	bw.Close()

	var zl bytes.Buffer
	zw := zlib.NewWriter(&zl)
	zw.Write(plain)
	zw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"brotli", "br", br.Bytes()},
		{"zlib-deflate", "deflate", zl.Bytes()},
		{"已解压的gzip", "gzip", plain},
		{"无编码", "", plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decompressBody(tt.encoding, tt.body)
			require.NoError(t, err)
			assert.Equal(t, plain, got)
		})
	}
}
