package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting storage bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 打开存储并建表
	repo, cleanup, err := wire.InitializeStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer cleanup()
	fmt.Printf("Storage %q is ready.\n", cfg.Storage.Driver)

	// 3. 检查已有快照
	sessions, err := repo.Load(ctx)
	if err != nil {
		log.Fatalf("failed to read snapshot: %v", err)
	}
	fmt.Printf("Found %d stored session(s) under key %q.\n", len(sessions), cfg.Storage.Key)

	// 4. 按需清空
	reset, _ := strconv.ParseBool(os.Getenv("BOOTSTRAP_RESET"))
	if reset {
		if err := repo.Clear(ctx); err != nil {
			log.Fatalf("failed to clear snapshot: %v", err)
		}
		fmt.Println("Stored sessions cleared.")
	}

	fmt.Println("Bootstrap completed successfully.")
}
