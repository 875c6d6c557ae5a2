package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestConfigFile_EnsureConfigExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "newscrawl.yaml")
	cf := NewConfigFile(path)

	created, err := cf.EnsureConfigExists()
	if err != nil {
		t.Fatalf("生成配置文件失败: %v", err)
	}
	if !created {
		t.Error("首次调用应新建文件")
	}

	// 已存在时不覆盖
	if err := os.WriteFile(path, []byte("crawl:\n  block_size: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	created, err = cf.EnsureConfigExists()
	if err != nil || created {
		t.Fatalf("期望不新建文件, created=%v err=%v", created, err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "block_size: 7") {
		t.Error("已有配置文件被覆盖")
	}
}

func TestConfigFile_ValidateFileSize(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.yaml")
	os.WriteFile(small, []byte("crawl: {}\n"), 0644)
	if err := NewConfigFile(small).ValidateFileSize(); err != nil {
		t.Errorf("小文件不应报错: %v", err)
	}

	big := filepath.Join(dir, "big.yaml")
	os.WriteFile(big, make([]byte, MaxConfigFileSize+1), 0644)
	err := NewConfigFile(big).ValidateFileSize()
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("期望ConfigError, 实际: %v", err)
	}
	if cfgErr.FilePath != big {
		t.Errorf("FilePath = %s", cfgErr.FilePath)
	}

	if err := NewConfigFile(filepath.Join(dir, "missing.yaml")).ValidateFileSize(); err == nil {
		t.Error("不存在的文件应报错")
	}
}

func TestConfigFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newscrawl.yaml")
	os.WriteFile(path, []byte("crawl:\n  max_retries: 9\n"), 0644)

	v := viper.New()
	if err := NewConfigFile(path).Load(v); err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got := v.GetInt("crawl.max_retries"); got != 9 {
		t.Errorf("crawl.max_retries = %d", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("crawl: [unclosed\n"), 0644)
	var cfgErr *models.ConfigError
	if err := NewConfigFile(bad).Load(viper.New()); !errors.As(err, &cfgErr) {
		t.Errorf("期望ConfigError, 实际: %v", err)
	}
}

func TestTemplate(t *testing.T) {
	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(Template()), &parsed); err != nil {
		t.Fatalf("模板不是合法YAML: %v", err)
	}

	for _, key := range []string{"crawl", "sources", "headers", "logging", "output", "storage"} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("模板缺少 %s", key)
		}
	}

	sources, _ := parsed["sources"].(map[string]any)
	for _, id := range models.AllSources {
		if _, ok := sources[id.Key()]; !ok {
			t.Errorf("模板缺少新闻源 %s", id.Key())
		}
	}
}

func TestNewConfigFile_DefaultPath(t *testing.T) {
	if got := NewConfigFile("").Path(); got != DefaultConfigFile {
		t.Errorf("Path() = %s", got)
	}
}
