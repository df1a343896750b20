package session

import (
	"testing"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		from    models.AppState
		event   Event
		want    models.AppState
		wantErr bool
	}{
		{models.StateIdle, EventUpload, models.StateCropping, false},
		{models.StateReadyToGenerate, EventUpload, models.StateCropping, false},
		{models.StateComplete, EventUpload, models.StateCropping, false},
		{models.StateAnalyzing, EventUpload, models.StateAnalyzing, true},
		{models.StateGenerating, EventUpload, models.StateGenerating, true},
		{models.StateCropping, EventDrainFirstAsset, models.StateAnalyzing, false},
		{models.StateCropping, EventDrain, models.StateIdle, false},
		{models.StateIdle, EventDrain, models.StateIdle, true},
		{models.StateIdle, EventAnalyze, models.StateAnalyzing, false},
		{models.StateReadyToGenerate, EventAnalyze, models.StateAnalyzing, false},
		{models.StateCropping, EventAnalyze, models.StateCropping, true},
		{models.StateAnalyzing, EventAnalysisSucceeded, models.StateReadyToGenerate, false},
		{models.StateAnalyzing, EventAnalysisFailed, models.StateError, false},
		{models.StateReadyToGenerate, EventGenerate, models.StateGenerating, false},
		{models.StateComplete, EventGenerate, models.StateGenerating, false},
		{models.StateAnalyzing, EventGenerate, models.StateAnalyzing, true},
		{models.StateGenerating, EventGenerate, models.StateGenerating, true},
		{models.StateGenerating, EventGenerationFinished, models.StateComplete, false},
		{models.StateGenerating, EventGenerationSetupFailed, models.StateError, false},
		{models.StateComplete, EventRestore, models.StateComplete, false},
		{models.StateCropping, EventRestore, models.StateCropping, true},
		{models.StateComplete, EventArchive, models.StateIdle, false},
		{models.StateGenerating, EventReset, models.StateIdle, false},
		{models.StateError, EventReset, models.StateIdle, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			m := &Machine{state: tt.from}
			got, err := m.Fire(tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, m.State())
		})
	}
}

func TestMachine_UnknownEvent(t *testing.T) {
	m := NewMachine()
	assert.False(t, m.Can(Event("teleport")))
	_, err := m.Fire(Event("teleport"))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestDeriveState(t *testing.T) {
	p := &models.AnalysisProfile{Description: "d"}
	assert.Equal(t, models.StateIdle, DeriveState(0, nil, 0))
	assert.Equal(t, models.StateReadyToGenerate, DeriveState(0, p, 0))
	assert.Equal(t, models.StateComplete, DeriveState(0, p, 2))
	assert.Equal(t, models.StateComplete, DeriveState(0, nil, 2))
	assert.Equal(t, models.StateCropping, DeriveState(1, p, 2))
}
