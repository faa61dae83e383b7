package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/renlabs/go-ren/core"
)

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ren.toml")
	content := `
[Runtime]
Ballast = 4096
PoisonTails = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fileCfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := core.DefaultConfig()
	applyConfig(&cfg, fileCfg)

	if cfg.Ballast != 4096 {
		t.Errorf("ballast: have %d, want 4096", cfg.Ballast)
	}
	if cfg.PoisonTails {
		t.Error("poison tails should be off")
	}
	if !cfg.CountTicks {
		t.Error("unset fields keep their defaults")
	}
}

func TestTokensToCells(t *testing.T) {
	rt, err := core.Init(core.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown()

	cells, err := tokensToCells(rt, []string{"x:", "3", "x", "+", "4", "_"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 6 {
		t.Fatalf("have %d cells, want 6", len(cells))
	}

	block := rt.NewBlock(cells[:5]...)
	res, err := rt.DoBlock(block, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Heart() != core.HeartInteger || res.Integer() != 7 {
		t.Errorf("have %v, want 7", res.String())
	}
}
