package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogConfig(dir string, level string) LogConfig {
	return LogConfig{
		Level:      level,
		LogDir:     dir,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
		Console:    &bytes.Buffer{},
		NoColor:    true,
	}
}

func TestInitLogger(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "logs")

	if err := InitLogger(testLogConfig(tempDir, "debug")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Errorf("日志目录未创建: %s", tempDir)
	}

	Info("测试信息日志")
	Debugf("抓取列表页 %d", 3)

	mainLogPath := filepath.Join(tempDir, MainLogFile)
	content, err := os.ReadFile(mainLogPath)
	if err != nil {
		t.Fatalf("读取主日志文件失败: %v", err)
	}
	if !strings.Contains(string(content), "抓取列表页 3") {
		t.Errorf("主日志缺少调试日志: %s", content)
	}
}

func TestErrorLogOnlyReceivesErrors(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLogger(testLogConfig(tempDir, "info")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("普通信息")
	Warnf("重试第%d次", 1)
	Error(errors.New("connection reset"), "导出失败")

	content, err := os.ReadFile(filepath.Join(tempDir, ErrorLogFile))
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "导出失败") {
		t.Errorf("错误日志缺少error级别消息: %s", text)
	}
	if strings.Contains(text, "普通信息") || strings.Contains(text, "重试第1次") {
		t.Errorf("错误日志不应包含低级别消息: %s", text)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLogger(testLogConfig(tempDir, "warn")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("不应出现的信息")
	Warn("应该出现的警告")

	content, err := os.ReadFile(filepath.Join(tempDir, MainLogFile))
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	if strings.Contains(string(content), "不应出现的信息") {
		t.Error("warn级别下不应写入info日志")
	}
	if !strings.Contains(string(content), "应该出现的警告") {
		t.Error("缺少warn日志")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLogger(testLogConfig(tempDir, "verbose")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Debug("调试日志")
	Info("信息日志")

	content, _ := os.ReadFile(filepath.Join(tempDir, MainLogFile))
	if strings.Contains(string(content), "调试日志") {
		t.Error("无效级别应回退到info")
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := testLogConfig(t.TempDir(), "info")
	cfg.Console = &buf
	if err := InitLogger(cfg); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	logger := Component("fetcher")
	logger.Info().Msg("请求完成")

	if !strings.Contains(buf.String(), "component=fetcher") {
		t.Errorf("控制台输出缺少组件字段: %s", buf.String())
	}
}
