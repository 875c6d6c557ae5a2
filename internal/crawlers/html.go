package crawlers

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var spaceRun = regexp.MustCompile(`[ \t\f\r\x{00a0}]+`)

// ParseHTML 解析页面为文档
// 已是合法UTF-8的内容直接解析: Content-Type声明了其他编码时colly已转码,
// 此时meta标签里的charset已失效,不能再按它解码一次
func ParseHTML(content []byte) (*goquery.Document, error) {
	var reader io.Reader = bytes.NewReader(content)
	if !utf8.Valid(content) {
		r, err := charset.NewReader(reader, "")
		if err != nil {
			return nil, fmt.Errorf("检测页面编码失败: %w", err)
		}
		reader = r
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return doc, nil
}

// ParseFragment 解析HTML片段(如API返回的正文HTML)
func ParseFragment(fragment string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(fragment))
}

// NormalizeSpace 合并空白并去除首尾空白
func NormalizeSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Text 选择器首个匹配元素的规范化文本
func Text(doc *goquery.Document, selector string) string {
	if doc == nil || selector == "" {
		return ""
	}
	return NormalizeSpace(doc.Find(selector).First().Text())
}

// Attr 选择器首个匹配元素的属性值
func Attr(doc *goquery.Document, selector, attr string) string {
	if doc == nil || selector == "" {
		return ""
	}
	value, _ := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

// DefaultBlocks 正文中按段落提取的块元素
const DefaultBlocks = "p, h2, h3, h4, li"

// BlockText 按DefaultBlocks提取正文
func BlockText(sel *goquery.Selection, remove ...string) string {
	return BlockTextWith(sel, DefaultBlocks, remove...)
}

// BlockTextWith 提取正文: 先移除噪声元素,再把blocks匹配的段落逐行拼接
// 没有任何块元素时退回整体文本
func BlockTextWith(sel *goquery.Selection, blocks string, remove ...string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	sel = sel.First().Clone()
	for _, r := range remove {
		sel.Find(r).Remove()
	}

	var lines []string
	found := sel.Find(blocks)
	if found.Length() == 0 {
		lines = appendLines(lines, sel.Text())
	} else {
		found.Each(func(_ int, s *goquery.Selection) {
			// 嵌套块只取最外层
			if s.ParentsFiltered(blocks).Length() > 0 {
				return
			}
			lines = appendLines(lines, s.Text())
		})
	}
	return strings.Join(lines, "\n")
}

// appendLines 追加文本中的非空行
func appendLines(lines []string, text string) []string {
	for _, line := range strings.Split(text, "\n") {
		if line = NormalizeSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FragmentText 将HTML片段转换为纯文本正文
func FragmentText(fragment string, remove ...string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := ParseFragment(fragment)
	if err != nil {
		return NormalizeSpace(fragment)
	}
	return BlockText(doc.Find("body"), remove...)
}
