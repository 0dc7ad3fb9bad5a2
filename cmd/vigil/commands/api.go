package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkwon/vigil/backend/internal/api"
	"github.com/dkwon/vigil/backend/internal/api/handlers"
	"github.com/dkwon/vigil/backend/internal/data/repos"
	"github.com/dkwon/vigil/backend/internal/queue"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
	"github.com/dkwon/vigil/backend/internal/submit"
	"github.com/dkwon/vigil/backend/pkg/config"
	"github.com/dkwon/vigil/backend/pkg/database"
	"github.com/dkwon/vigil/backend/pkg/logger"
	"github.com/dkwon/vigil/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  GET  /api/scores/top            - Top-N inflection 점수 조회
  GET  /api/assets/{asset}/facts  - 종목별 시그널 팩트 조회
  GET  /api/jobs/{id}             - 잡 상태 + 실행 이력
  POST /api/jobs                  - 잡 제출

Example:
  go run ./cmd/vigil api
  go run ./cmd/vigil api --port 8091`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vigil API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Template document identifies the active config
	doc, _, err := ruleconfig.Load(cfg.Engine.TemplatePath)
	if err != nil {
		return fmt.Errorf("load template document: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	// 5. Redis cache (optional - disabled means pass-through)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()
	cache := redis.NewCache(rdb, "vigil")

	// 6. Repositories and submitter
	factRepo := repos.NewFactRepository(db.Pool)
	scoreRepo := repos.NewScoreRepository(db.Pool)
	jobRepo := repos.NewJobRepository(db.Pool)
	runRepo := repos.NewRunRepository(db.Pool)
	q := queue.New(db.Pool, cfg.Worker.VisibilityTimeout)
	submitter := submit.NewSubmitter(jobRepo, q, log)

	// 7. Handlers and router
	scoreHandler := handlers.NewScoreHandler(scoreRepo, factRepo, cache, doc.Meta.ConfigID, log)
	jobHandler := handlers.NewJobHandler(jobRepo, runRepo, submitter, doc.Meta.ConfigID, log)
	router := api.NewRouter(scoreHandler, jobHandler, log)

	// 8. Start server with graceful shutdown
	server := api.New(cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
