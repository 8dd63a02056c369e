package api

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/canvasagent/internal/agent"
	"github.com/solatis/canvasagent/internal/types"
)

func TestAssemble(t *testing.T) {
	engineErr := errors.New("engine down")

	tests := []struct {
		name        string
		outcome     *agent.Outcome
		batchSize   int
		wantErr     error
		wantOps     int
		wantHasMore bool
	}{
		{
			name:      "completed under batch size",
			outcome:   &agent.Outcome{State: agent.StateCompleted, StopReason: types.StopCompleted, Operations: ops(2)},
			batchSize: 5,
			wantOps:   2,
		},
		{
			name:        "completed at batch size",
			outcome:     &agent.Outcome{State: agent.StateCompleted, StopReason: types.StopCompleted, Operations: ops(5)},
			batchSize:   5,
			wantOps:     5,
			wantHasMore: true,
		},
		{
			name:        "capped above batch size",
			outcome:     &agent.Outcome{State: agent.StateCapped, StopReason: types.StopIterationCap, Operations: ops(7)},
			batchSize:   5,
			wantOps:     7,
			wantHasMore: true,
		},
		{
			name:      "failed with operations",
			outcome:   &agent.Outcome{State: agent.StateFailed, StopReason: types.StopEngineFailure, Operations: ops(9), Err: engineErr},
			batchSize: 5,
			wantOps:   9,
		},
		{
			name:      "failed without operations",
			outcome:   &agent.Outcome{State: agent.StateFailed, StopReason: types.StopEngineFailure, Err: engineErr},
			batchSize: 5,
			wantErr:   engineErr,
		},
		{
			name:      "nothing to do",
			outcome:   &agent.Outcome{State: agent.StateCompleted, StopReason: types.StopCompleted},
			batchSize: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Assemble(tt.outcome, tt.batchSize, 1500*time.Millisecond)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, result.Operations)
			assert.Len(t, result.Operations, tt.wantOps)
			assert.Equal(t, tt.wantOps, result.TotalOperations)
			assert.Equal(t, tt.wantHasMore, result.HasMore)
			assert.Equal(t, 1, result.BatchNumber)
			assert.Equal(t, int64(1500), result.ElapsedMs)
			assert.Equal(t, tt.outcome.StopReason, result.StopReason)
		})
	}
}
