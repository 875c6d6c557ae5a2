package crawlers

import (
	"net/url"
	"strings"
	"sync"
)

// URLSet 并发安全的URL去重集合
// 同一次运行内跨页面、跨块共享
type URLSet struct {
	seen map[string]struct{}
	mu   sync.RWMutex
}

// NewURLSet 创建URL集合
func NewURLSet() *URLSet {
	return &URLSet{
		seen: make(map[string]struct{}),
	}
}

// Add 加入URL,首次出现返回true
func (s *URLSet) Add(rawURL string) bool {
	key := NormalizeURL(rawURL)
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len 集合大小
func (s *URLSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// NormalizeURL 去重键: 去除首尾空白与片段
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
