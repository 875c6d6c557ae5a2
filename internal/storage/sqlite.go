package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	url TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	author TEXT,
	published_at TEXT,
	tag TEXT,
	title TEXT,
	drophead TEXT,
	excerpt TEXT,
	body TEXT,
	crawled_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_source_date ON articles (source, published_at);
`

const upsertArticle = `
	INSERT OR REPLACE INTO articles (
		url, source, author, published_at, tag,
		title, drophead, excerpt, body, crawled_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SQLiteStore 写入本地SQLite文件
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
	logger    zerolog.Logger
}

// NewSQLiteStore 打开数据库并初始化表结构
func NewSQLiteStore(ctx context.Context, opts Options) (*SQLiteStore, error) {
	if dir := filepath.Dir(opts.SQLitePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", opts.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// sqlite3 不支持并发写
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		batchSize: opts.batchSize(),
		logger:    utils.Component("sqlite"),
	}, nil
}

// Save 每批一个事务
func (s *SQLiteStore) Save(ctx context.Context, articles []*models.Article) (int, error) {
	now := time.Now().UTC()
	saved := 0

	for i, batch := range crawlers.SplitIntoBlocks(articles, s.batchSize) {
		if err := s.saveBatch(ctx, batch, now); err != nil {
			return saved, fmt.Errorf("保存到SQLite失败 (批次 %d): %w", i+1, err)
		}
		saved += len(batch)
		s.logger.Debug().Int("batch", i+1).Int("size", len(batch)).Msg("批次写入完成")
	}

	return saved, nil
}

func (s *SQLiteStore) saveBatch(ctx context.Context, batch []*models.Article, crawledAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertArticle)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range batch {
		var published sql.NullString
		if d, ok := a.PublishedAt.Get(); ok {
			published = sql.NullString{String: d.Format(models.DateLayout), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			a.URL,
			string(a.Source),
			nullString(a.Author),
			published,
			nullString(a.Tag),
			nullString(a.Title),
			nullString(a.Drophead),
			nullString(a.Excerpt),
			nullString(a.Body),
			formatTime(&crawledAt),
		)
		if err != nil {
			return fmt.Errorf("写入 %s 失败: %w", a.URL, err)
		}
	}

	return tx.Commit()
}

// Get 按URL读取文章,不存在时返回nil
func (s *SQLiteStore) Get(ctx context.Context, url string) (*models.Article, error) {
	var source string
	var author, published, tag, title, drophead, excerpt, body sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT source, author, published_at, tag, title, drophead, excerpt, body
		FROM articles WHERE url = ?`, url).
		Scan(&source, &author, &published, &tag, &title, &drophead, &excerpt, &body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a := models.NewArticle(models.SourceID(source), url)
	a.Author = optional(author)
	if published.Valid {
		if d, err := models.ParseDay(models.DateLayout, published.String); err == nil {
			a.PublishedAt = models.Some(d)
		}
	}
	a.Tag = optional(tag)
	a.Title = optional(title)
	a.Drophead = optional(drophead)
	a.Excerpt = optional(excerpt)
	a.Body = optional(body)
	return a, nil
}

// Count 表中的文章数
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(o models.Optional[string]) sql.NullString {
	v, ok := o.Get()
	return sql.NullString{String: v, Valid: ok}
}

func optional(ns sql.NullString) models.Optional[string] {
	if !ns.Valid {
		return models.None[string]()
	}
	return models.Some(ns.String)
}
