package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/core"
	"github.com/RecoveryAshes/newscrawl/internal/crawlers"
	"github.com/RecoveryAshes/newscrawl/internal/export"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/storage"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers []string

	// 抓取参数
	startDate   string
	endDate     string
	sourceNames []string
	outputDir   string
	storageName string
	blockSize   int
	blockDelay  time.Duration
	retries     int
	retryDelay  time.Duration
	noProgress  bool
	saveReport  bool
)

// appConfig 由 PersistentPreRunE 加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "newscrawl",
	Short: "智利新闻网站爬取工具",
	Long: `newscrawl - 按日期范围爬取智利新闻网站并导出为Excel

支持的新闻源:
  • EL_MOSTRADOR  分页列表,二分查找日期边界
  • EMOL          搜索API,二分查找文章偏移
  • TVN           分页列表,全量扫描后按日期过滤
  • COOPERATIVA   每日列表页

示例:
  # 爬取单日所有新闻源
  newscrawl --start 2024-01-08

  # 指定日期范围与新闻源
  newscrawl --start 2024-01-01 --end 2024-01-07 --sources emol,tvn -o output

  # 同时写入SQLite
  newscrawl --start 2024-01-08 --storage sqlite

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		overrides, err := buildOverrides(cmd)
		if err != nil {
			return err
		}
		config.MergeCLIFlags(overrides)
		appConfig = config

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: runCrawl,
}

// buildOverrides 只收集用户显式指定的参数
func buildOverrides(cmd *cobra.Command) (core.Overrides, error) {
	var o core.Overrides
	flags := cmd.Flags()

	if flags.Changed("sources") {
		ids, err := ParseSources(sourceNames)
		if err != nil {
			return o, err
		}
		o.Sources = ids
	}
	if flags.Changed("block-size") {
		o.BlockSize = blockSize
	}
	if flags.Changed("block-delay") {
		o.BlockDelay = blockDelay
	}
	if flags.Changed("retries") {
		o.MaxRetries = &retries
	}
	if flags.Changed("retry-delay") {
		o.RetryDelay = retryDelay
	}
	if flags.Changed("output") {
		o.OutputDir = outputDir
	}
	if flags.Changed("storage") {
		driver, err := ParseStorage(storageName)
		if err != nil {
			return o, err
		}
		o.Storage = driver
	}
	o.LogLevel = logLevel
	if flags.Changed("no-progress") {
		progress := !noProgress
		o.Progress = &progress
	}
	if flags.Changed("report") {
		o.Report = &saveReport
	}
	return o, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	// 如果没有提供日期,显示帮助信息
	if startDate == "" {
		return cmd.Help()
	}

	window, err := ParseWindow(startDate, endDate, time.Now())
	if err != nil {
		return err
	}
	if err := ValidateFlags(blockSize, retries, blockDelay, retryDelay); err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	// Ctrl+C 取消抓取,已抓取的结果不导出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headerManager, err := core.NewHeaderManager(appConfig.Headers, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	utils.Debugf("请求头: %s", headerManager.GetSafeHeaders())

	var progress io.Writer
	if appConfig.Output.Progress {
		progress = os.Stderr
	}
	monitor := crawlers.NewResourceMonitor(crawlers.DefaultMemoryWarnPercent)

	batch := core.NewBatchCrawler(appConfig, core.HTTPFetcherFactory(headerManager), monitor, progress)
	batch.SetSummaryOutput(os.Stdout)

	summary, err := batch.Run(ctx, window)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("抓取已取消,未导出任何文件")
		}
		return fmt.Errorf("抓取失败: %w", err)
	}

	if appConfig.Output.Report {
		if path, err := utils.NewReporter(appConfig.Output.Dir).Save(summary.Report); err != nil {
			utils.Warnf("⚠️  保存运行报告失败: %v", err)
		} else {
			utils.Infof("📝 运行报告: %s", path)
		}
	}

	grouped := summary.Articles()
	path, err := export.NewExcelExporter(appConfig.Output.Dir).Export(window, grouped)
	if errors.Is(err, export.ErrNoRecords) {
		utils.Warn("未找到任何新闻")
		return nil
	}
	if err != nil {
		return fmt.Errorf("导出失败: %w", err)
	}
	utils.Infof("✅ 已导出: %s", path)

	if appConfig.Storage.Driver != core.StorageNone {
		if err := saveToStorage(ctx, summary); err != nil {
			return err
		}
	}

	utils.Info("✨ 抓取任务完成!")
	return nil
}

// saveToStorage 将所有新闻源的文章写入数据库
func saveToStorage(ctx context.Context, summary *core.BatchSummary) error {
	sc := appConfig.Storage
	store, err := storage.Open(ctx, sc.Driver, storage.Options{
		BatchSize:       sc.BatchSize,
		MongoURI:        sc.Mongo.URI,
		MongoDatabase:   sc.Mongo.Database,
		MongoCollection: sc.Mongo.Collection,
		Timeout:         appConfig.Crawl.Timeout,
		SQLitePath:      sc.SQLite.Path,
	})
	if err != nil {
		return fmt.Errorf("打开存储失败: %w", err)
	}
	defer store.Close()

	var articles []*models.Article
	for _, id := range models.AllSources {
		articles = append(articles, summary.Articles()[id]...)
	}

	saved, err := store.Save(ctx, articles)
	if err != nil {
		return fmt.Errorf("写入存储失败: %w", err)
	}

	total, err := store.Count(ctx)
	if err != nil {
		utils.Warnf("⚠️  统计存储记录失败: %v", err)
		total = -1
	}
	utils.Infof("💾 已写入 %s: %d 篇 (库中共 %d 篇)", sc.Driver, saved, total)
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 抓取参数
	rootCmd.Flags().StringVar(&startDate, "start", "", "开始日期 yyyy-mm-dd (必需)")
	rootCmd.Flags().StringVar(&endDate, "end", "", "结束日期 yyyy-mm-dd (默认与开始日期相同)")
	rootCmd.Flags().StringSliceVarP(&sourceNames, "sources", "s", nil, "新闻源列表,逗号分隔 (默认使用配置文件中启用的新闻源)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "输出目录")
	rootCmd.Flags().StringVar(&storageName, "storage", "", "同时写入数据库 (mongo|sqlite)")
	rootCmd.Flags().IntVar(&blockSize, "block-size", 0, "每块的列表单元数 (覆盖所有新闻源)")
	rootCmd.Flags().DurationVar(&blockDelay, "block-delay", 0, "块间延迟,如 10s (覆盖所有新闻源)")
	rootCmd.Flags().IntVar(&retries, "retries", 3, "失败请求的重试次数 (0-20)")
	rootCmd.Flags().DurationVar(&retryDelay, "retry-delay", 0, "重试间隔,如 1s")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")
	rootCmd.Flags().BoolVar(&saveReport, "report", true, "保存JSON运行报告")

	// 添加子命令
	rootCmd.AddCommand(versionCmd, sourcesCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
