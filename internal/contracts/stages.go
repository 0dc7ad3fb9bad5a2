package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, PipelineRun counts, job_type 매핑에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Coverage  Evaluate  State  Score  Review

// Stage represents a pipeline stage
type Stage string

const (
	// StageCoverage S0: 피처 커버리지 검증
	// 책임: 기대 대비 실제 피처 행 수 검증, 미달 시 터미널 실패
	// 위치: internal/s0_features/
	StageCoverage Stage = "S0_COVERAGE"

	// StageEvaluate S1: 템플릿 평가
	// 책임: 룰 엔진 실행, SignalFact upsert, attention 점수 write-back
	// 위치: internal/s1_evaluate/
	StageEvaluate Stage = "S1_EVALUATE"

	// StageState S2: 인스턴스 상태 머신
	// 책임: NEW/ACTIVE/ENDED/COOLDOWN 전이, 유휴/쿨다운 판정
	// 위치: internal/s2_state/
	StageState Stage = "S2_STATE"

	// StageScore S3: 집계/랭킹
	// 책임: 캡 적용 가중 합산, inflection 점수, 유니버스 내 순위
	// 위치: internal/s3_score/
	StageScore Stage = "S3_SCORE"

	// StageReview S4: 리뷰 후보 선정
	// 책임: Top-N 후보를 외부 리뷰어용 테이블에 기록
	// 위치: internal/s4_review/
	StageReview Stage = "S4_REVIEW"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageCoverage:
		return "S0"
	case StageEvaluate:
		return "S1"
	case StageState:
		return "S2"
	case StageScore:
		return "S3"
	case StageReview:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageCoverage:
		return "피처 커버리지 검증"
	case StageEvaluate:
		return "템플릿 평가"
	case StageState:
		return "인스턴스 상태 전이"
	case StageScore:
		return "집계/랭킹"
	case StageReview:
		return "리뷰 후보 선정"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageCoverage,
		StageEvaluate,
		StageState,
		StageScore,
		StageReview,
	}
}

// StageResult records one stage's outcome inside a PipelineRun
type StageResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	ErrorCount  int    `json:"error_count"`
	DurationMS  int64  `json:"duration_ms"`
	Status      string `json:"status,omitempty"` // e.g. "no_data"
	Error       string `json:"error,omitempty"`
}
