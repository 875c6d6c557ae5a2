package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/config"
	"github.com/RecoveryAshes/newscrawl/internal/core"
	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/sources"
	"github.com/RecoveryAshes/newscrawl/internal/storage"
	"github.com/spf13/cobra"
)

var checkOffline bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境、输出目录、存储与新闻源连通性",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !runChecks(cmd.Context(), appConfig, configFile, cmd.OutOrStdout(), checkOffline) {
			return fmt.Errorf("环境检查未通过")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkOffline, "offline", false, "跳过新闻源连通性检查")
	rootCmd.AddCommand(checkCmd)
}

// runChecks 逐项检查并打印结果,全部通过时返回true
func runChecks(ctx context.Context, cfg *core.Config, cfgPath string, out io.Writer, offline bool) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(out, "==============================================")
	fmt.Fprintln(out, "  newscrawl 环境检查")
	fmt.Fprintln(out, "==============================================")

	allOK := true
	fail := func(format string, args ...any) {
		fmt.Fprintf(out, "❌ "+format+"\n", args...)
		allOK = false
	}

	fmt.Fprintf(out, "✅ Go版本: %s\n", runtime.Version())
	fmt.Fprintf(out, "✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 配置文件
	if cfgPath == "" {
		cfgPath = config.DefaultConfigFile
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "⚠️  未找到配置文件 %s, 使用默认值 (运行 'newscrawl config init' 生成)\n", cfgPath)
	} else if err := config.NewConfigFile(cfgPath).ValidateFileSize(); err != nil {
		fail("配置文件: %v", err)
	} else {
		fmt.Fprintf(out, "✅ 配置文件: %s\n", cfgPath)
	}
	if err := cfg.Validate(); err != nil {
		fail("配置无效: %v", err)
	}

	// 输出目录可写
	if err := checkWritable(cfg.Output.Dir); err != nil {
		fail("输出目录 %s 不可写: %v", cfg.Output.Dir, err)
	} else {
		fmt.Fprintf(out, "✅ 输出目录: %s\n", cfg.Output.Dir)
	}

	// 内存
	status := crawlers.NewResourceMonitor(crawlers.DefaultMemoryWarnPercent).Sample()
	fmt.Fprintf(out, "✅ 内存: 可用 %.1f GB / 共 %.1f GB (%s)\n",
		float64(status.AvailableMemory)/(1<<30), float64(status.TotalMemory)/(1<<30), status.MemoryPressure)

	// 存储
	if cfg.Storage.Driver != core.StorageNone {
		store, err := storage.Open(ctx, cfg.Storage.Driver, storage.Options{
			BatchSize:       cfg.Storage.BatchSize,
			MongoURI:        cfg.Storage.Mongo.URI,
			MongoDatabase:   cfg.Storage.Mongo.Database,
			MongoCollection: cfg.Storage.Mongo.Collection,
			Timeout:         cfg.Crawl.Timeout,
			SQLitePath:      cfg.Storage.SQLite.Path,
		})
		if err != nil {
			fail("存储 %s: %v", cfg.Storage.Driver, err)
		} else {
			store.Close()
			fmt.Fprintf(out, "✅ 存储: %s\n", cfg.Storage.Driver)
		}
	}

	if !offline {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "检查新闻源连通性...")
		for _, id := range cfg.EnabledSources() {
			url, err := checkSource(ctx, cfg, id)
			if err != nil {
				fail("%s: %v", id, err)
				continue
			}
			fmt.Fprintf(out, "✅ %s: %s\n", id, url)
		}
	}

	fmt.Fprintln(out, "==============================================")
	if allOK {
		fmt.Fprintln(out, "✅ 环境检查通过!")
	} else {
		fmt.Fprintln(out, "❌ 环境检查失败,请解决上述问题。")
	}
	return allOK
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// checkSource 请求新闻源的第一个列表地址,不重试
func checkSource(ctx context.Context, cfg *core.Config, id models.SourceID) (string, error) {
	cc := cfg.CrawlConfigFor(id)
	src, err := sources.New(id, sources.Options{BaseURL: cfg.Source(id).BaseURL, ArticlesPerRequest: cc.ArticlesPerRequest})
	if err != nil {
		return "", err
	}

	var url string
	switch s := src.(type) {
	case sources.Paginated:
		url = s.TotalURL()
	case sources.Daily:
		today := models.Day(time.Now())
		url = s.DayURLs(models.DateWindow{Start: today, End: today})[0]
	default:
		return "", fmt.Errorf("未知的新闻源类型")
	}

	headerManager, err := core.NewHeaderManager(cfg.Headers, headers)
	if err != nil {
		return "", err
	}
	fetcher, err := crawlers.NewHTTPFetcher(crawlers.FetcherOptions{
		Policy:  crawlers.RetryPolicy{MaxRetries: 0},
		Timeout: cc.Timeout,
		Headers: headerManager,
		Source:  id,
	})
	if err != nil {
		return "", err
	}

	if _, err := fetcher.Get(ctx, url); err != nil {
		return "", err
	}
	return url, nil
}
