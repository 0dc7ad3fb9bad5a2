package contracts

import (
	"fmt"
	"time"
)

// JobType selects which stage subset a job executes
type JobType string

const (
	JobTypeFull     JobType = "full"
	JobTypeEvaluate JobType = "evaluate"
	JobTypeState    JobType = "state"
	JobTypeScore    JobType = "score"
	JobTypeReview   JobType = "review"
)

// ParseJobType resolves a job type string, accepting stage aliases
// (s1..s4, stage constant names) alongside the canonical names.
func ParseJobType(s string) (JobType, error) {
	switch s {
	case "full", "all":
		return JobTypeFull, nil
	case "evaluate", "s1", string(StageEvaluate):
		return JobTypeEvaluate, nil
	case "state", "s2", string(StageState):
		return JobTypeState, nil
	case "score", "scoring", "s3", string(StageScore):
		return JobTypeScore, nil
	case "review", "s4", string(StageReview):
		return JobTypeReview, nil
	default:
		return "", fmt.Errorf("unknown job type: %q", s)
	}
}

// Stages returns the ordered stage subset for this job type.
// The S0 coverage gate precedes every subset and is not listed here.
func (t JobType) Stages() []Stage {
	switch t {
	case JobTypeFull:
		return []Stage{StageEvaluate, StageState, StageScore}
	case JobTypeEvaluate:
		return []Stage{StageEvaluate}
	case JobTypeState:
		return []Stage{StageState}
	case JobTypeScore:
		return []Stage{StageScore}
	case JobTypeReview:
		return []Stage{StageReview}
	default:
		return nil
	}
}

// JobStatus is the durable job state
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// Job is the durable unit of work claimed by exactly one worker at a time.
// 소유권은 lease_expires_at으로 표현 - 만료 전 재claim은 실패해야 함.
type Job struct {
	JobID           string     `json:"job_id"`
	JobType         JobType    `json:"job_type"`
	AsOfDate        time.Time  `json:"as_of_date"`
	UniverseID      string     `json:"universe_id"`
	ConfigID        string     `json:"config_id"`
	Status          JobStatus  `json:"status"`
	AttemptCount    int        `json:"attempt_count"`
	LeaseExpiresAt  *time.Time `json:"lease_expires_at,omitempty"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// JobMessage is the queue payload external schedulers enqueue
type JobMessage struct {
	JobID      string            `json:"job_id"`
	JobType    JobType           `json:"job_type"`
	AsOfDate   string            `json:"as_of_date"` // YYYY-MM-DD
	UniverseID string            `json:"universe_id"`
	ConfigID   string            `json:"config_id"`
	Params     map[string]string `json:"params,omitempty"` // optional tuning params
}

// RunStatus is the audit row state
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// PipelineRun is one audit row per execution attempt.
// Created at claim time, finalized at completion regardless of outcome.
type PipelineRun struct {
	RunID     string        `json:"run_id"`
	JobID     string        `json:"job_id"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Status    RunStatus     `json:"status"`
	Stages    []StageResult `json:"stages"`
	ErrorText string        `json:"error_text,omitempty"`
}
