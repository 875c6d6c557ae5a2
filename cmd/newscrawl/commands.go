package main

import (
	"fmt"

	"github.com/RecoveryAshes/newscrawl/internal/config"
	"github.com/RecoveryAshes/newscrawl/internal/core"
	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/sources"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newscrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "列出支持的新闻源",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := sourceRows(appConfig)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), core.FormatTable(rows))
		return nil
	},
}

// sourceRows 新闻源表格,第一行为表头
func sourceRows(cfg *core.Config) ([][]string, error) {
	rows := [][]string{{"新闻源", "类型", "启用", "块大小", "块间延迟", "地址"}}
	for _, id := range models.AllSources {
		sc := cfg.Source(id)
		src, err := sources.New(id, sources.Options{BaseURL: sc.BaseURL})
		if err != nil {
			return nil, err
		}

		base := sc.BaseURL
		if base == "" {
			base = sources.DefaultBaseURL(id)
		}
		enabled := "否"
		if sc.Enabled {
			enabled = "是"
		}
		cc := cfg.CrawlConfigFor(id)
		rows = append(rows, []string{
			string(id),
			sources.Kind(src),
			enabled,
			fmt.Sprint(cc.BlockSize),
			cc.BlockDelay.String(),
			base,
		})
	}
	return rows, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置文件管理",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "以YAML格式显示当前生效的配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(appConfig); err != nil {
			return fmt.Errorf("序列化配置失败: %w", err)
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "生成默认配置文件 (已存在时不覆盖)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}

		cf := config.NewConfigFile(path)
		created, err := cf.EnsureConfigExists()
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已生成配置文件: %s\n", cf.Path())
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "配置文件已存在: %s\n", cf.Path())
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
}
