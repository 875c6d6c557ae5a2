// Package config 管理配置文件模板的生成与读取
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile 默认配置文件路径
	DefaultConfigFile = "configs/newscrawl.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed newscrawl_template.yaml
var defaultTemplate string

// Template 返回默认配置模板
func Template() string {
	return defaultTemplate
}

// ConfigFile 配置文件
// 负责生成模板、校验大小并交给viper读取
type ConfigFile struct {
	configPath string
}

// NewConfigFile 创建配置文件句柄
func NewConfigFile(configPath string) *ConfigFile {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	return &ConfigFile{
		configPath: configPath,
	}
}

// Path 配置文件路径
func (cf *ConfigFile) Path() string {
	return cf.configPath
}

// EnsureConfigExists 确保配置文件存在,如不存在则写入模板
// 返回是否新建了文件
func (cf *ConfigFile) EnsureConfigExists() (bool, error) {
	if _, err := os.Stat(cf.configPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("无法读取配置文件信息 [%s]: %w", cf.configPath, err)
	}

	dir := filepath.Dir(cf.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}

	if err := os.WriteFile(cf.configPath, []byte(defaultTemplate), 0644); err != nil {
		return false, fmt.Errorf("无法生成配置文件 [%s]: %w", cf.configPath, err)
	}
	return true, nil
}

// ValidateFileSize 验证配置文件大小是否在限制内
func (cf *ConfigFile) ValidateFileSize() error {
	info, err := os.Stat(cf.configPath)
	if err != nil {
		return &models.ConfigError{FilePath: cf.configPath, Cause: err}
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: cf.configPath,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}

	return nil
}

// Load 将配置文件读入viper
// 执行流程:
//  1. 验证文件存在且大小在限制内
//  2. 使用Viper解析YAML
//  3. 文件被其他进程锁定时降级为默认值
func (cf *ConfigFile) Load(v *viper.Viper) error {
	if err := cf.ValidateFileSize(); err != nil {
		return err
	}

	v.SetConfigFile(cf.configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认配置", cf.configPath)
			return nil
		}
		return &models.ConfigError{
			FilePath: cf.configPath,
			Cause:    err,
		}
	}

	return nil
}
