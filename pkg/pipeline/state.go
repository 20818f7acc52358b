package pipeline

import "fmt"

// State は生成リクエストの進行状態です。
type State string

const (
	StateRequested           State = "requested"
	StateQuotaChecked        State = "quota_checked"
	StateProvidersSelected   State = "providers_selected"
	StateProjectEnsured      State = "project_ensured"
	StateCharactersExtracted State = "characters_extracted"
	StateNarrativeDecomposed State = "narrative_decomposed"
	StateTemplateResolved    State = "template_resolved"
	StatePanelSynthesizing   State = "panel_synthesizing"
	StateLayoutApplied       State = "layout_applied"
	StateUsageRecorded       State = "usage_recorded"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
)

// StageError は Failed 状態に至ったときのエラーです。Stage は到達できなかった状態を示します。
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
