package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent(stage Stage) Event {
	evt := Event{
		RunID: "run-1",
		TS:    time.Now().UTC(),
		Stage: stage,
	}
	if stage == StagePageDone {
		evt.URL = "https://shop.example/p/1"
	}
	return evt
}

func TestEventValidateAcceptsAllStages(t *testing.T) {
	t.Parallel()

	for _, stage := range []Stage{StageRunStart, StagePageDone, StageRunDone, StageRunError} {
		require.NoError(t, validEvent(stage).Validate(), "stage %s", stage)
	}
}

func TestEventValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Event)
		want   string
	}{
		{
			name:   "missing run id",
			mutate: func(e *Event) { e.RunID = "" },
			want:   "run id",
		},
		{
			name:   "missing timestamp",
			mutate: func(e *Event) { e.TS = time.Time{} },
			want:   "timestamp",
		},
		{
			name:   "unknown stage",
			mutate: func(e *Event) { e.Stage = "LAUNCH" },
			want:   "unknown stage",
		},
		{
			name:   "negative duration",
			mutate: func(e *Event) { e.Dur = -time.Second },
			want:   "duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			evt := validEvent(StageRunStart)
			tt.mutate(&evt)
			err := evt.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEventValidatePageDoneRequiresURL(t *testing.T) {
	t.Parallel()

	evt := validEvent(StagePageDone)
	evt.URL = ""
	require.Error(t, evt.Validate())
}
