package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/core"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

// ParseWindow 解析 --start/--end,end为空时与start相同
func ParseWindow(start, end string, now time.Time) (models.DateWindow, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if end == "" {
		end = start
	}
	return models.ParseDateWindow(start, end, now)
}

// ParseSources 解析新闻源列表,去重并保持固定顺序
func ParseSources(names []string) ([]models.SourceID, error) {
	selected := make(map[models.SourceID]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := models.ParseSourceID(part)
			if err != nil {
				return nil, err
			}
			selected[id] = true
		}
	}

	if len(selected) == 0 {
		return nil, &models.ValidationError{
			Field:      "sources",
			Value:      strings.Join(names, ","),
			Reason:     "新闻源列表为空",
			Suggestion: "例如 --sources emol,tvn",
		}
	}

	var ids []models.SourceID
	for _, id := range models.AllSources {
		if selected[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ParseStorage 解析存储驱动,none 表示不写数据库
func ParseStorage(name string) (string, error) {
	switch driver := strings.ToLower(strings.TrimSpace(name)); driver {
	case "", "none":
		return core.StorageNone, nil
	case core.StorageMongo, core.StorageSQLite:
		return driver, nil
	default:
		return "", &models.ValidationError{
			Field:      "storage",
			Value:      name,
			Reason:     "不支持的存储驱动",
			Suggestion: "可选值: none, mongo, sqlite",
		}
	}
}

// ValidateFlags 验证命令行标志
func ValidateFlags(blockSize, retries int, blockDelay, retryDelay time.Duration) error {
	// 0 表示使用配置文件中的值
	if blockSize < 0 || blockSize > 1000 {
		return fmt.Errorf("块大小必须在1-1000之间,当前值: %d", blockSize)
	}

	if retries < 0 || retries > 20 {
		return fmt.Errorf("重试次数必须在0-20之间,当前值: %d", retries)
	}

	if blockDelay < 0 {
		return fmt.Errorf("块间延迟不能为负,当前值: %s", blockDelay)
	}

	if retryDelay < 0 {
		return fmt.Errorf("重试间隔不能为负,当前值: %s", retryDelay)
	}

	return nil
}
