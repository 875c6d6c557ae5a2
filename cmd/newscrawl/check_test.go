package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/newscrawl/internal/core"
	"github.com/RecoveryAshes/newscrawl/internal/models"
)

func TestRunChecks_Offline(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")

	var out bytes.Buffer
	if !runChecks(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.yaml"), &out, true) {
		t.Fatalf("期望检查通过:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "未找到配置文件") {
		t.Errorf("缺少配置文件提示:\n%s", out.String())
	}
	if _, err := os.Stat(cfg.Output.Dir); err != nil {
		t.Errorf("输出目录应被创建: %v", err)
	}
}

func TestRunChecks_UnwritableOutput(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := core.DefaultConfig()
	cfg.Output.Dir = filepath.Join(blocker, "out")

	var out bytes.Buffer
	if runChecks(context.Background(), cfg, "", &out, true) {
		t.Errorf("期望检查失败:\n%s", out.String())
	}
}

func TestRunChecks_Sources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/down") {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	cfg := core.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.MergeCLIFlags(core.Overrides{Sources: []models.SourceID{models.SourceCooperativa, models.SourceTVN}})
	coop := cfg.Sources[models.SourceCooperativa.Key()]
	coop.BaseURL = srv.URL
	cfg.Sources[models.SourceCooperativa.Key()] = coop
	tvn := cfg.Sources[models.SourceTVN.Key()]
	tvn.BaseURL = srv.URL + "/down"
	cfg.Sources[models.SourceTVN.Key()] = tvn

	var out bytes.Buffer
	if runChecks(context.Background(), cfg, "", &out, false) {
		t.Fatalf("TVN不可用时期望检查失败:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "✅ COOPERATIVA") {
		t.Errorf("COOPERATIVA 应该通过:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "❌ TVN") {
		t.Errorf("TVN 应该失败:\n%s", out.String())
	}
}
