package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weboryskills/practice/internal/config"
	"github.com/weboryskills/practice/internal/storage/sqlite"
)

// cmdInit creates the practice directory and a default config
func cmdInit() error {
	fmt.Print("Creating ~/.practice directory structure... ")
	dir, err := config.EnsureDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.Save(configPath, config.Default()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Println()
	fmt.Println("Set your LLM key in ~/.practice/secrets.yaml (llm.api_key)")
	fmt.Println("or export PRACTICE_LLM_API_KEY, then run 'practice start'.")
	return nil
}

// cmdConfig prints the effective configuration without secrets
func cmdConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	key := "not set"
	if cfg.LLM.APIKey != "" {
		key = "set"
	}

	fmt.Println("Configuration")
	fmt.Println("=============")
	fmt.Printf("Daemon:      %s (log level %s)\n", cfg.Server.Addr(), cfg.Server.LogLevel)
	fmt.Printf("Rate limit:  %d req/min per user\n", cfg.Server.RateLimit)
	fmt.Printf("Storage:     %s\n", cfg.Storage.Driver)
	fmt.Printf("Activity:    sink=%s consume=%t\n", cfg.Activity.Sink, cfg.Activity.Consume)
	fmt.Printf("LLM:         %s %v (api key %s)\n", cfg.LLM.Provider, cfg.LLM.Models, key)
	fmt.Printf("Award:       interview %d xp, aptitude threshold %d, streak bonus %d\n",
		cfg.Award.InterviewXP, cfg.Award.AptitudeThreshold, cfg.Award.StreakBonus)
	fmt.Printf("Streak day:  UTC%s, tolerance %s\n", cfg.Award.StreakUTCOffset, cfg.Award.StreakTolerance)
	if cfg.Telemetry.Endpoint != "" {
		fmt.Printf("Tracing:     %s\n", cfg.Telemetry.Endpoint)
	}
	return nil
}

// cmdMigrate applies pending SQLite migrations
func cmdMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.DriverSQLite {
		return fmt.Errorf("migrate only applies to the sqlite driver (configured: %s)", cfg.Storage.Driver)
	}

	path := cfg.Storage.SQLitePath
	if path == "" {
		dir, err := config.EnsureDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "data", "practice.db")
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	applied, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	version, err := db.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d migration(s); schema version %d\n", applied, version)
	return nil
}
