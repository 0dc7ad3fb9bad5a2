package contracts

import "time"

// InstanceState is the lifecycle state of a recurring signal instance
type InstanceState string

const (
	// InstanceNew 최초 감지 후 승격 대기
	InstanceNew InstanceState = "NEW"
	// InstanceActive MIN_ACTIVE_DAYS 연속 관측되어 승격됨
	InstanceActive InstanceState = "ACTIVE"
	// InstanceEnded GRACE_PERIOD_DAYS 연속 미관측
	InstanceEnded InstanceState = "ENDED"
	// InstanceInvalidated 운영자/규칙에 의해 무효화됨
	InstanceInvalidated InstanceState = "INVALIDATED"
	// InstanceCooldown 재발화 금지 구간 (사이클 종료 상태)
	InstanceCooldown InstanceState = "COOLDOWN"
)

// IsLive reports whether the state counts against the one-live-instance
// invariant. At most one NEW or ACTIVE instance may exist per
// (asset_id, template_name, config_id).
func (s InstanceState) IsLive() bool {
	return s == InstanceNew || s == InstanceActive
}

// CanTransitionTo reports whether a state change is part of the closed
// lifecycle graph: NEW→{ACTIVE,ENDED,INVALIDATED}, ACTIVE→{ENDED,INVALIDATED},
// ENDED→COOLDOWN. COOLDOWN re-enters as a brand-new instance, never by
// mutating the old row.
func (s InstanceState) CanTransitionTo(next InstanceState) bool {
	switch s {
	case InstanceNew:
		return next == InstanceActive || next == InstanceEnded || next == InstanceInvalidated
	case InstanceActive:
		return next == InstanceEnded || next == InstanceInvalidated
	case InstanceEnded:
		return next == InstanceCooldown
	default:
		return false
	}
}

// SignalInstance tracks the lifetime of one recurring
// (asset_id, template_name, config_id) signal.
// Rows are never deleted - the state column is the archival marker.
type SignalInstance struct {
	InstanceID     int64         `json:"instance_id"`
	AssetID        string        `json:"asset_id"`
	TemplateName   string        `json:"template_name"`
	ConfigID       string        `json:"config_id"`
	State          InstanceState `json:"state"`
	FirstDate      time.Time     `json:"first_date"`
	LastSeenDate   time.Time     `json:"last_seen_date"`
	DaysAbsent     int           `json:"days_absent"`
	StrengthAtOpen float64       `json:"strength_at_open"`
	EndedReason    string        `json:"ended_reason,omitempty"`

	// CooldownEnteredAt anchors the cooldown window to the ENDED→COOLDOWN
	// transition itself, not to a generic updated_at touch.
	CooldownEnteredAt *time.Time `json:"cooldown_entered_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the instance's recurring-signal key
func (i *SignalInstance) Key() FactKey {
	return FactKey{AssetID: i.AssetID, TemplateName: i.TemplateName}
}
