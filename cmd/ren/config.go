package main

import (
	"fmt"
	"os"

	"github.com/naoina/toml"

	"github.com/renlabs/go-ren/core"
)

// fileConfig is the TOML shape of the tuning file.
type fileConfig struct {
	Runtime struct {
		Ballast           int64
		PoolClassBytes    []int
		PoisonTails       *bool
		TrackOrigins      *bool
		CountTicks        *bool
		CrashOnDivergence *bool
	}
}

func loadConfig(path string) (*fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	var cfg fileConfig
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyConfig(dst *core.Config, src *fileConfig) {
	if src.Runtime.Ballast != 0 {
		dst.Ballast = src.Runtime.Ballast
	}
	if len(src.Runtime.PoolClassBytes) != 0 {
		dst.PoolClassBytes = src.Runtime.PoolClassBytes
	}
	if src.Runtime.PoisonTails != nil {
		dst.PoisonTails = *src.Runtime.PoisonTails
	}
	if src.Runtime.TrackOrigins != nil {
		dst.TrackOrigins = *src.Runtime.TrackOrigins
	}
	if src.Runtime.CountTicks != nil {
		dst.CountTicks = *src.Runtime.CountTicks
	}
	if src.Runtime.CrashOnDivergence != nil {
		dst.CrashOnDivergence = *src.Runtime.CrashOnDivergence
	}
}
