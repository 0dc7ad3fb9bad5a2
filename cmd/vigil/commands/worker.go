package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/data/repos"
	"github.com/dkwon/vigil/backend/internal/engine"
	"github.com/dkwon/vigil/backend/internal/queue"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
	"github.com/dkwon/vigil/backend/internal/s0_features"
	"github.com/dkwon/vigil/backend/internal/s1_evaluate"
	"github.com/dkwon/vigil/backend/internal/s2_state"
	"github.com/dkwon/vigil/backend/internal/s3_score"
	"github.com/dkwon/vigil/backend/internal/s4_review"
	"github.com/dkwon/vigil/backend/internal/universe"
	"github.com/dkwon/vigil/backend/internal/worker"
	"github.com/dkwon/vigil/backend/pkg/config"
	"github.com/dkwon/vigil/backend/pkg/database"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "잡 워커 시작",
	Long: `큐를 폴링하며 파이프라인 잡을 실행하는 워커를 시작합니다.

이 명령어는:
- 템플릿 문서 로드 및 엔진 컴파일
- 큐 폴링 → 리스 claim → 스테이지 실행
- 하트비트로 리스 연장, 재시도/터미널 분류
- SIGINT/SIGTERM에 협조적 종료

Example:
  go run ./cmd/vigil worker
  go run ./cmd/vigil worker --env production`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vigil Worker ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load and compile the template document - ConfigError is fatal here
	doc, _, err := ruleconfig.Load(cfg.Engine.TemplatePath)
	if err != nil {
		return fmt.Errorf("load template document: %w", err)
	}
	eng, err := engine.New(doc)
	if err != nil {
		return fmt.Errorf("compile templates: %w", err)
	}
	log.Infof("compiled %d templates (config %s)", eng.TemplateCount(), eng.ConfigID())

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	// 5. Repositories and collaborators
	factRepo := repos.NewFactRepository(db.Pool)
	instRepo := repos.NewInstanceRepository(db.Pool)
	scoreRepo := repos.NewScoreRepository(db.Pool)
	jobRepo := repos.NewJobRepository(db.Pool)
	runRepo := repos.NewRunRepository(db.Pool)
	reviewRepo := repos.NewReviewRepository(db.Pool)

	selector := universe.NewSelector(db.Pool)
	provider := s0_features.NewProvider(db.Pool, log, cfg.Engine.WritebackRate)
	gate := s0_features.NewCoverageGate(provider, log, cfg.Engine.MinCoverage)

	// 6. Stage runners
	runners := []contracts.StageRunner{
		s1_evaluate.NewRunner(selector, provider, eng, factRepo, log),
		s2_state.NewRunner(factRepo, instRepo, log),
		s3_score.NewRunner(factRepo, instRepo, scoreRepo, log),
		s4_review.NewRunner(scoreRepo, reviewRepo, cfg.Engine.ReviewCandidates, log),
	}

	// 7. Queue and worker
	q := queue.New(db.Pool, cfg.Worker.VisibilityTimeout)
	w := worker.New(q, jobRepo, runRepo, selector, gate, runners, cfg.Worker, log)

	// 8. Run until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("\n✅ Worker running. Press Ctrl+C to stop")
	return w.Run(ctx)
}
