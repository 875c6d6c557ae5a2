// Package storage 按URL保存文章记录的可选存储
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
)

// 存储驱动
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// DefaultBatchSize 每批写入的文章数
const DefaultBatchSize = 500

// Store 文章存储,同一URL重复保存时覆盖旧记录
type Store interface {
	Save(ctx context.Context, articles []*models.Article) (int, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Options 存储连接参数
type Options struct {
	BatchSize int

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	Timeout         time.Duration

	SQLitePath string
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

// Open 按驱动名打开存储
func Open(ctx context.Context, driver string, opts Options) (Store, error) {
	switch driver {
	case DriverMongo:
		return NewMongoStore(ctx, opts)
	case DriverSQLite:
		return NewSQLiteStore(ctx, opts)
	default:
		return nil, &models.ValidationError{
			Field:      "storage.driver",
			Value:      driver,
			Reason:     "不支持的存储驱动",
			Suggestion: fmt.Sprintf("可选值: %s, %s", DriverMongo, DriverSQLite),
		}
	}
}

// formatTime RFC3339格式,nil返回nil
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
