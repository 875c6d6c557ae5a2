package models

import "time"

// ListingPage 单个列表页(或API分页)的解析结果
// 解析失败时各字段为空,由调用方决定如何处理
type ListingPage struct {
	// TotalPages 分页控件中最后一页的编号,API来源为条目总数
	TotalPages Optional[int]

	// ArticleURLs 去重后的文章链接
	ArticleURLs []string

	// BoundaryDate 页面最后一条(最旧)文章的发布日期
	BoundaryDate Optional[time.Time]

	// Articles 列表内容中直接携带的文章(API来源),无需再抓详情页
	Articles []*Article
}

// IndexRange 解析出的列表索引闭区间 [End, Start]
// End 是较新的一端(索引较小),Start 是较旧的一端
type IndexRange struct {
	End   int
	Start int
}

// Empty 区间是否为空
func (r IndexRange) Empty() bool {
	return r.Start < r.End
}

// Len 区间包含的索引数量
func (r IndexRange) Len() int {
	if r.Empty() {
		return 0
	}
	return r.Start - r.End + 1
}

// OldestFirst 返回 Start..End 的索引序列(从旧到新)
func (r IndexRange) OldestFirst() []int {
	if r.Empty() {
		return nil
	}
	indices := make([]int, 0, r.Len())
	for i := r.Start; i >= r.End; i-- {
		indices = append(indices, i)
	}
	return indices
}
