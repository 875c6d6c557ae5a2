// Package crawlers 提供新闻抓取的基础组件
//
// # 概述
//
// crawlers包不关心具体新闻源,只提供抓取、解析、定位与去重的通用能力,
// 由 sources 包配置规则,由 core 包编排。
//
// # 核心组件
//
// ## HTTPFetcher
//
// 基于Colly同步collector的抓取器,可被多个goroutine并发调用。
// 404立即返回ErrNotFound;其他失败按固定间隔重试,总尝试次数为MaxRetries+1。
//
//	fetcher, err := NewHTTPFetcher(FetcherOptions{
//	    Policy:  RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second},
//	    Timeout: 30 * time.Second,
//	})
//	body, ok := fetcher.Fetch(ctx, "https://www.emol.com/")
//
// ## ListingRules
//
// 声明式的列表页解析规则: 总页数、文章链接、边界日期。
// 缺失的字段返回空值,不报错。
//
// ## RangeResolver
//
// 在按时间倒序分页的列表上二分查找日期窗口对应的页码区间。
// 每次探测获取一个位置的边界日期,探测失败时收缩区间以保证终止。
//
//	resolver := NewRangeResolver(ProberFunc(probe))
//	r := resolver.Resolve(ctx, window, 1, totalPages)
//
// ## URLSet
//
// 并发安全的URL去重集合,同一次运行内共享。
//
// ## ResourceMonitor
//
// 每个块结束时采样系统内存,记录峰值并在内存紧张时告警。
package crawlers
