package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/config"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl   models.CrawlConfig      `mapstructure:"crawl" yaml:"crawl"`
	Sources map[string]SourceConfig `mapstructure:"sources" yaml:"sources"`
	Headers map[string]string       `mapstructure:"headers" yaml:"headers"`
	Logging LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig            `mapstructure:"output" yaml:"output"`
	Storage StorageConfig           `mapstructure:"storage" yaml:"storage"`
}

// SourceConfig 单个新闻源的配置,零值字段沿用 crawl 全局配置
type SourceConfig struct {
	Enabled            bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	BlockSize          int           `mapstructure:"block_size" yaml:"block_size,omitempty"`
	BlockDelay         time.Duration `mapstructure:"block_delay" yaml:"block_delay,omitempty"`
	MaxConcurrent      int           `mapstructure:"max_concurrent" yaml:"max_concurrent,omitempty"`
	ArticlesPerRequest int           `mapstructure:"articles_per_request" yaml:"articles_per_request,omitempty"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level" yaml:"level"`
	LogDir   string         `mapstructure:"log_dir" yaml:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Report   bool   `mapstructure:"report" yaml:"report"`
	Progress bool   `mapstructure:"progress" yaml:"progress"`
}

// StorageConfig 存储配置,Driver 为空时只导出表格
type StorageConfig struct {
	Driver    string       `mapstructure:"driver" yaml:"driver"`
	BatchSize int          `mapstructure:"batch_size" yaml:"batch_size"`
	Mongo     MongoConfig  `mapstructure:"mongo" yaml:"mongo"`
	SQLite    SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

// MongoConfig MongoDB配置
type MongoConfig struct {
	URI        string `mapstructure:"uri" yaml:"uri"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// 存储驱动
const (
	StorageNone   = ""
	StorageMongo  = "mongo"
	StorageSQLite = "sqlite"
)

// LoadConfig 加载配置文件
// 未指定路径时依次搜索 ./configs、当前目录、~/.newscrawl,均不存在则使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	v.SetEnvPrefix("NEWSCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		// 使用指定的配置文件
		if err := config.NewConfigFile(configPath).Load(v); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("newscrawl")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".newscrawl"))
		}

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
			// 配置文件不存在,使用默认值
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig 仅由默认值构成的配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// 默认值均为合法类型,不会失败
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// sourceDefaults 各新闻源的默认块参数
var sourceDefaults = map[models.SourceID]SourceConfig{
	models.SourceElMostrador: {Enabled: true, BlockSize: 20, BlockDelay: 10 * time.Second},
	models.SourceEmol:        {Enabled: true, BlockSize: 4, BlockDelay: 2 * time.Second, ArticlesPerRequest: 500},
	models.SourceTVN:         {Enabled: true, BlockSize: 20, BlockDelay: 10 * time.Second},
	models.SourceCooperativa: {Enabled: true, BlockSize: 5, BlockDelay: 5 * time.Second},
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 爬取配置默认值
	d := models.DefaultCrawlConfig()
	v.SetDefault("crawl.block_size", d.BlockSize)
	v.SetDefault("crawl.block_delay", d.BlockDelay)
	v.SetDefault("crawl.max_retries", d.MaxRetries)
	v.SetDefault("crawl.retry_delay", d.RetryDelay)
	v.SetDefault("crawl.timeout", d.Timeout)
	v.SetDefault("crawl.max_concurrent", d.MaxConcurrent)
	v.SetDefault("crawl.strict_date", d.StrictDate)
	v.SetDefault("crawl.articles_per_request", d.ArticlesPerRequest)

	// 新闻源默认值
	for id, sc := range sourceDefaults {
		prefix := "sources." + id.Key() + "."
		v.SetDefault(prefix+"enabled", sc.Enabled)
		v.SetDefault(prefix+"block_size", sc.BlockSize)
		v.SetDefault(prefix+"block_delay", sc.BlockDelay)
		if sc.ArticlesPerRequest > 0 {
			v.SetDefault(prefix+"articles_per_request", sc.ArticlesPerRequest)
		}
	}

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.report", true)
	v.SetDefault("output.progress", true)

	// 存储配置默认值
	v.SetDefault("storage.driver", StorageNone)
	v.SetDefault("storage.batch_size", 500)
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.database", "newscrawl")
	v.SetDefault("storage.mongo.collection", "articles")
	v.SetDefault("storage.sqlite.path", "output/newscrawl.db")
}

// Source 返回新闻源配置
func (c *Config) Source(id models.SourceID) SourceConfig {
	if sc, ok := c.Sources[id.Key()]; ok {
		return sc
	}
	return SourceConfig{}
}

// CrawlConfigFor 合并全局与新闻源配置
func (c *Config) CrawlConfigFor(id models.SourceID) models.CrawlConfig {
	cc := c.Crawl
	sc := c.Source(id)
	if sc.BlockSize > 0 {
		cc.BlockSize = sc.BlockSize
	}
	if sc.BlockDelay > 0 {
		cc.BlockDelay = sc.BlockDelay
	}
	if sc.MaxConcurrent > 0 {
		cc.MaxConcurrent = sc.MaxConcurrent
	}
	if sc.ArticlesPerRequest > 0 {
		cc.ArticlesPerRequest = sc.ArticlesPerRequest
	}
	return cc
}

// EnabledSources 按固定顺序返回启用的新闻源
func (c *Config) EnabledSources() []models.SourceID {
	var ids []models.SourceID
	for _, id := range models.AllSources {
		if c.Source(id).Enabled {
			ids = append(ids, id)
		}
	}
	return ids
}

// Overrides 命令行参数,零值表示未指定
type Overrides struct {
	Sources    []models.SourceID
	BlockSize  int
	BlockDelay time.Duration
	MaxRetries *int
	RetryDelay time.Duration
	OutputDir  string
	Storage    string
	LogLevel   string
	Report     *bool
	Progress   *bool
}

// MergeCLIFlags 合并命令行参数到配置,命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(o Overrides) {
	if len(o.Sources) > 0 {
		selected := make(map[models.SourceID]bool, len(o.Sources))
		for _, id := range o.Sources {
			selected[id] = true
		}
		if c.Sources == nil {
			c.Sources = make(map[string]SourceConfig)
		}
		for _, id := range models.AllSources {
			sc := c.Source(id)
			sc.Enabled = selected[id]
			c.Sources[id.Key()] = sc
		}
	}

	// 命令行的块参数作用于所有新闻源
	if o.BlockSize > 0 || o.BlockDelay > 0 {
		for key, sc := range c.Sources {
			if o.BlockSize > 0 {
				sc.BlockSize = o.BlockSize
			}
			if o.BlockDelay > 0 {
				sc.BlockDelay = o.BlockDelay
			}
			c.Sources[key] = sc
		}
		if o.BlockSize > 0 {
			c.Crawl.BlockSize = o.BlockSize
		}
		if o.BlockDelay > 0 {
			c.Crawl.BlockDelay = o.BlockDelay
		}
	}

	if o.MaxRetries != nil {
		c.Crawl.MaxRetries = *o.MaxRetries
	}
	if o.RetryDelay > 0 {
		c.Crawl.RetryDelay = o.RetryDelay
	}
	if o.OutputDir != "" {
		c.Output.Dir = o.OutputDir
	}
	if o.Storage != "" {
		c.Storage.Driver = o.Storage
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Report != nil {
		c.Output.Report = *o.Report
	}
	if o.Progress != nil {
		c.Output.Progress = *o.Progress
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.EnabledSources()) == 0 {
		return &models.ValidationError{
			Field:      "sources",
			Reason:     "没有启用任何新闻源",
			Suggestion: "使用 --sources 指定,例如 --sources emol,tvn",
		}
	}

	for _, id := range c.EnabledSources() {
		cc := c.CrawlConfigFor(id)
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("新闻源 %s 配置无效: %w", id, err)
		}
		if base := c.Source(id).BaseURL; base != "" {
			if err := models.ValidateURL(base); err != nil {
				return fmt.Errorf("新闻源 %s 配置无效: %w", id, err)
			}
		}
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return &models.ValidationError{Field: "output.dir", Reason: "输出目录不能为空"}
	}

	switch c.Storage.Driver {
	case StorageNone, StorageMongo, StorageSQLite:
	default:
		return &models.ValidationError{
			Field:      "storage.driver",
			Value:      c.Storage.Driver,
			Reason:     "不支持的存储驱动",
			Suggestion: "可选值: mongo, sqlite",
		}
	}
	if c.Storage.Driver != StorageNone && c.Storage.BatchSize < 1 {
		return &models.ValidationError{Field: "storage.batch_size", Value: fmt.Sprint(c.Storage.BatchSize), Reason: "批大小必须大于0"}
	}

	return nil
}
