package audit

import "time"

// ActorType identifies who triggered an audited action.
type ActorType string

const (
	ActorSystem ActorType = "system"
	ActorCaller ActorType = "caller"
)

// Action describes what happened. Pipeline decisions that silently change
// behavior (strategy degrade, provider fallback, discarded findings) are
// recorded here so they are auditable facts, not hidden heuristics.
type Action string

const (
	ActionJobSubmitted      Action = "job_submitted"
	ActionJobCancelled      Action = "job_cancelled"
	ActionStrategyDegraded  Action = "strategy_degraded"
	ActionFallbackTriggered Action = "fallback_triggered"
	ActionGapsDiscarded     Action = "gaps_discarded"
	ActionChunkFailed       Action = "chunk_failed"
)

// Scope describes the level at which an action applies.
type Scope string

const (
	ScopeJob      Scope = "job"
	ScopeChunk    Scope = "chunk"
	ScopeProvider Scope = "provider"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorType ActorType `json:"actorType"`
	Action    Action    `json:"action"`
	Scope     Scope     `json:"scope"`
	ScopeID   string    `json:"scopeId"`
	Summary   string    `json:"summary"`
	Detail    string    `json:"detail,omitempty"`
}
