package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy
// ⭐ SSOT: worker의 retry/terminal 분류는 이 타입들로만 판단
//
//	ConfigError          - 템플릿 문서 오류, 기동 시 치명적
//	DataUnavailableError - 커버리지 미달, 터미널 (재시도 없음)
//	TransientError       - 저장소/네트워크 일시 장애, 재시도 대상
//	ErrClaimLost         - 다른 워커가 선점, 에러 아님 (skip)
//	ConstraintError      - 예기치 않은 중복 키, 결함으로 기록

// ErrClaimLost means another worker already owns the job's lease.
// Not a failure - the poller simply moves on.
var ErrClaimLost = errors.New("job claim lost to another worker")

// ConfigError is a malformed template document. Fatal at startup.
type ConfigError struct {
	Path   string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("template config invalid (%s): %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("template config invalid: %s", e.Detail)
}

// DataUnavailableError means feature coverage fell below the threshold.
// Terminal: retrying won't make yesterday's data appear.
type DataUnavailableError struct {
	UniverseID string
	Expected   int
	Actual     int
	Threshold  float64
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("feature coverage below threshold for universe %s: %d/%d (min %.0f%%)",
		e.UniverseID, e.Actual, e.Expected, e.Threshold*100)
}

// TransientError wraps a store or network blip worth retrying
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable, preserving the operation name
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// ConstraintError is an unexpected duplicate-key violation.
// Logged as a defect; the job fails.
type ConstraintError struct {
	Table string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation on %s: %v", e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the worker should leave the message for
// redelivery. Only transient I/O qualifies.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsTerminal reports whether the failure must not be retried
func IsTerminal(err error) bool {
	var de *DataUnavailableError
	var ce *ConfigError
	var ve *ConstraintError
	return errors.As(err, &de) || errors.As(err, &ce) || errors.As(err, &ve)
}
