package session

import (
	"fmt"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// Event drives a transition of the Machine.
type Event string

const (
	EventUpload                Event = "upload"
	EventDrainFirstAsset       Event = "drain_first_asset"
	EventDrain                 Event = "drain"
	EventAnalyze               Event = "analyze"
	EventAnalysisSucceeded     Event = "analysis_succeeded"
	EventAnalysisFailed        Event = "analysis_failed"
	EventGenerate              Event = "generate"
	EventGenerationFinished    Event = "generation_finished"
	EventGenerationSetupFailed Event = "generation_setup_failed"
	EventRestore               Event = "restore"
	EventArchive               Event = "archive"
	EventReset                 Event = "reset"
)

type transition struct {
	from []models.AppState
	to   models.AppState
}

// A nil from list means any state.
var transitions = map[Event]transition{
	EventUpload: {
		from: []models.AppState{models.StateIdle, models.StateReadyToGenerate, models.StateComplete, models.StateError, models.StateCropping},
		to:   models.StateCropping,
	},
	EventDrainFirstAsset: {from: []models.AppState{models.StateCropping}, to: models.StateAnalyzing},
	EventDrain:           {from: []models.AppState{models.StateCropping}, to: models.StateIdle},
	EventAnalyze: {
		from: []models.AppState{models.StateIdle, models.StateReadyToGenerate, models.StateComplete, models.StateError},
		to:   models.StateAnalyzing,
	},
	EventAnalysisSucceeded: {from: []models.AppState{models.StateAnalyzing}, to: models.StateReadyToGenerate},
	EventAnalysisFailed:    {from: []models.AppState{models.StateAnalyzing}, to: models.StateError},
	EventGenerate: {
		from: []models.AppState{models.StateReadyToGenerate, models.StateComplete, models.StateIdle, models.StateError},
		to:   models.StateGenerating,
	},
	EventGenerationFinished:    {from: []models.AppState{models.StateGenerating}, to: models.StateComplete},
	EventGenerationSetupFailed: {from: []models.AppState{models.StateGenerating}, to: models.StateError},
	EventRestore: {
		from: []models.AppState{models.StateIdle, models.StateReadyToGenerate, models.StateComplete, models.StateError},
		to:   models.StateComplete,
	},
	EventArchive: {from: []models.AppState{models.StateComplete}, to: models.StateIdle},
	EventReset:   {to: models.StateIdle},
}

// Machine is the coordinating state of a session. It is not safe for
// concurrent use; the Engine guards it.
type Machine struct {
	state models.AppState
}

func NewMachine() *Machine {
	return &Machine{state: models.StateIdle}
}

func (m *Machine) State() models.AppState {
	return m.state
}

// Can reports whether ev is legal in the current state.
func (m *Machine) Can(ev Event) bool {
	t, ok := transitions[ev]
	if !ok {
		return false
	}
	if t.from == nil {
		return true
	}
	for _, s := range t.from {
		if s == m.state {
			return true
		}
	}
	return false
}

// Fire applies ev and returns the new state.
func (m *Machine) Fire(ev Event) (models.AppState, error) {
	if !m.Can(ev) {
		return m.state, fmt.Errorf("%s from %s: %w", ev, m.state, models.ErrInvalidTransition)
	}
	m.state = transitions[ev].to
	return m.state, nil
}

// DeriveState picks the resting state for data loaded at startup.
func DeriveState(queued int, profile *models.AnalysisProfile, galleryLen int) models.AppState {
	switch {
	case queued > 0:
		return models.StateCropping
	case galleryLen > 0:
		return models.StateComplete
	case profile != nil:
		return models.StateReadyToGenerate
	default:
		return models.StateIdle
	}
}
