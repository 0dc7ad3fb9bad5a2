package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkwon/vigil/backend/internal/data/repos"
	"github.com/dkwon/vigil/backend/internal/queue"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
	"github.com/dkwon/vigil/backend/internal/scheduler"
	"github.com/dkwon/vigil/backend/internal/scheduler/jobs"
	"github.com/dkwon/vigil/backend/internal/submit"
	"github.com/dkwon/vigil/backend/pkg/config"
	"github.com/dkwon/vigil/backend/pkg/database"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 시작",
	Long: `일일 파이프라인 잡을 자동 제출하는 스케줄러를 시작합니다.

평일 18:10에 설정된 각 유니버스에 대해 full 잡을 제출합니다.
실행 자체는 워커가 담당 - 스케줄러는 제출만 합니다.

Example:
  go run ./cmd/vigil scheduler
  go run ./cmd/vigil scheduler --universes kr_equity_main,kr_equity_small`,
	RunE: runScheduler,
}

var schedulerUniverses string

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&schedulerUniverses, "universes", "kr_equity_main", "대상 유니버스 (쉼표 구분)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Vigil Scheduler ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	doc, _, err := ruleconfig.Load(cfg.Engine.TemplatePath)
	if err != nil {
		return fmt.Errorf("load template document: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	jobRepo := repos.NewJobRepository(db.Pool)
	q := queue.New(db.Pool, cfg.Worker.VisibilityTimeout)
	submitter := submit.NewSubmitter(jobRepo, q, log)

	universes := strings.Split(schedulerUniverses, ",")
	for i := range universes {
		universes[i] = strings.TrimSpace(universes[i])
	}

	sched := scheduler.New(log)
	daily := jobs.NewDailyPipelineJob(submitter, universes, doc.Meta.ConfigID, log)
	if err := sched.AddJob(daily); err != nil {
		return fmt.Errorf("register daily job: %w", err)
	}

	sched.Start()
	fmt.Printf("\n✅ Scheduler running (universes: %s)\n", schedulerUniverses)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
