package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// articleDocument MongoDB中的文章文档,以url为唯一键
type articleDocument struct {
	Source      string     `bson:"source"`
	URL         string     `bson:"url"`
	Author      string     `bson:"author,omitempty"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
	Tag         string     `bson:"tag,omitempty"`
	Title       string     `bson:"title,omitempty"`
	Drophead    string     `bson:"drophead,omitempty"`
	Excerpt     string     `bson:"excerpt,omitempty"`
	Body        string     `bson:"body,omitempty"`
	CrawledAt   time.Time  `bson:"crawled_at"`
}

func toDocument(a *models.Article, crawledAt time.Time) articleDocument {
	doc := articleDocument{
		Source:    string(a.Source),
		URL:       a.URL,
		Author:    a.Author.OrElse(""),
		Tag:       a.Tag.OrElse(""),
		Title:     a.Title.OrElse(""),
		Drophead:  a.Drophead.OrElse(""),
		Excerpt:   a.Excerpt.OrElse(""),
		Body:      a.Body.OrElse(""),
		CrawledAt: crawledAt.UTC(),
	}
	if d, ok := a.PublishedAt.Get(); ok {
		doc.PublishedAt = &d
	}
	return doc
}

// MongoStore 批量upsert到MongoDB
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	batchSize  int
	logger     zerolog.Logger
}

// NewMongoStore 连接MongoDB并确保url唯一索引存在
func NewMongoStore(ctx context.Context, opts Options) (*MongoStore, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(opts.MongoURI).
		SetWriteConcern(writeconcern.W1()).
		SetTimeout(timeout).
		SetRetryWrites(true)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("MongoDB连接失败: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB Ping失败: %w", err)
	}

	coll := client.Database(opts.MongoDatabase).Collection(opts.MongoCollection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("创建url索引失败: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: coll,
		batchSize:  opts.batchSize(),
		logger:     utils.Component("mongo"),
	}
	s.logger.Info().Str("database", opts.MongoDatabase).Str("collection", opts.MongoCollection).Msg("MongoDB连接成功")
	return s, nil
}

// Save 按批写入,返回新增与更新的文章数
func (s *MongoStore) Save(ctx context.Context, articles []*models.Article) (int, error) {
	now := time.Now()
	saved := 0

	for i, batch := range crawlers.SplitIntoBlocks(articles, s.batchSize) {
		writes := make([]mongo.WriteModel, 0, len(batch))
		for _, a := range batch {
			writes = append(writes, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"url": a.URL}).
				SetReplacement(toDocument(a, now)).
				SetUpsert(true))
		}

		// 无序写入,单条失败不阻塞同批其他文档
		res, err := s.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return saved, fmt.Errorf("保存到MongoDB失败 (批次 %d): %w", i+1, err)
		}
		saved += int(res.UpsertedCount + res.MatchedCount)
		s.logger.Debug().Int("batch", i+1).Int("size", len(batch)).Msg("批次写入完成")
	}

	return saved, nil
}

// Count 集合中的文章数
func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.D{})
}

// Close 断开连接
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
