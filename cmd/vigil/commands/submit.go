package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkwon/vigil/backend/internal/contracts"
	"github.com/dkwon/vigil/backend/internal/data/repos"
	"github.com/dkwon/vigil/backend/internal/queue"
	"github.com/dkwon/vigil/backend/internal/ruleconfig"
	"github.com/dkwon/vigil/backend/internal/submit"
	"github.com/dkwon/vigil/backend/pkg/config"
	"github.com/dkwon/vigil/backend/pkg/database"
	"github.com/dkwon/vigil/backend/pkg/logger"
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "잡 수동 제출",
	Long: `잡을 수동으로 제출합니다 (주로 백필/재실행용).

Example:
  go run ./cmd/vigil submit --type full --universe kr_equity_main
  go run ./cmd/vigil submit --type score --universe kr_equity_main --date 2026-08-27`,
	RunE: runSubmit,
}

var (
	submitType     string
	submitDate     string
	submitUniverse string
)

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitType, "type", "full", "잡 타입 (full|evaluate|state|score|review 또는 s1..s4)")
	submitCmd.Flags().StringVar(&submitDate, "date", "", "기준일 YYYY-MM-DD (기본: 오늘)")
	submitCmd.Flags().StringVar(&submitUniverse, "universe", "", "유니버스 ID (필수)")
	submitCmd.MarkFlagRequired("universe")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	jobType, err := contracts.ParseJobType(submitType)
	if err != nil {
		return err
	}

	asOf := time.Now()
	if submitDate != "" {
		asOf, err = time.Parse("2006-01-02", submitDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

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

	jobRepo := repos.NewJobRepository(db.Pool)
	q := queue.New(db.Pool, cfg.Worker.VisibilityTimeout)
	submitter := submit.NewSubmitter(jobRepo, q, log)

	job, err := submitter.Submit(context.Background(), jobType, asOf, submitUniverse, doc.Meta.ConfigID)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}

	fmt.Printf("✅ Submitted %s job %s (date=%s universe=%s config=%s)\n",
		job.JobType, job.JobID, asOf.Format("2006-01-02"), submitUniverse, doc.Meta.ConfigID)
	return nil
}
