package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil - 시그널 처리 엔진",
	Long: `Vigil Unified CLI

일별 기술 피처를 내구성 있는 랭킹 시그널로 변환하는 처리 엔진.
템플릿 평가 → 인스턴스 상태 머신 → 점수 집계 → 리뷰 후보 선정.

Usage:
  go run ./cmd/vigil [command]

Examples:
  go run ./cmd/vigil worker
  go run ./cmd/vigil api
  go run ./cmd/vigil submit --type full --universe kr_equity_main
  go run ./cmd/vigil test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
