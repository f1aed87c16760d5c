package models

import "fmt"

// State is a step of the grounding state machine.
type State string

const (
	StateAwaitingQuestion State = "AWAITING_QUESTION"
	StateValidating       State = "VALIDATING"
	StateRetrieving       State = "RETRIEVING"
	StateLocalScan        State = "LOCAL_SCAN"
	StateComposingPrompt  State = "COMPOSING_PROMPT"
	StateCallingModel     State = "CALLING_MODEL"
	StateAnswered         State = "ANSWERED"
	StateDegraded         State = "DEGRADED"
	StateFailed           State = "FAILED"
)

// Strategy selects how grounding context is assembled.
type Strategy string

const (
	StrategyVectorRetrieval Strategy = "vector"
	StrategyKeywordScan     Strategy = "keyword"
	StrategyRawConcat       Strategy = "raw"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyVectorRetrieval, StrategyKeywordScan, StrategyRawConcat:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy: %q", s)
	}
}
