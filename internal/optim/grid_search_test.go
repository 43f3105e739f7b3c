package optim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/tauleap/internal/experiment"
	"github.com/san-kum/tauleap/internal/tauleap"
)

func decayBuilder(t *testing.T) func(map[string]float64) (*experiment.Experiment, error) {
	n, err := experiment.NewRegistry().GetModel("decay")
	require.NoError(t, err)
	return func(params map[string]float64) (*experiment.Experiment, error) {
		return experiment.New(n, experiment.Config{
			Time:      5,
			Seed:      9,
			Overrides: params,
			Params:    tauleap.DefaultParams(),
			Metrics:   []string{"final:X"},
		})
	}
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{2}, Linspace(2, 3, 1))
}

func TestNewGridSearch_Errors(t *testing.T) {
	_, err := NewGridSearch([]string{"k"}, nil)
	assert.Error(t, err)
	_, err = NewGridSearch([]string{"k"}, [][]float64{{}})
	assert.Error(t, err)
}

func TestGridSearch_FindsFastestDecay(t *testing.T) {
	g, err := NewGridSearch([]string{"k"}, [][]float64{{0, 0.1, 1}})
	require.NoError(t, err)

	all, best, err := g.Search(context.Background(), decayBuilder(t), "final_X", 3)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, 1.0, best.Params["k"])
	assert.Equal(t, 1000.0, all[0].Mean, "k=0 leaves X untouched")
	assert.Zero(t, all[0].Std)
	assert.Less(t, all[2].Mean, all[1].Mean)
}

func TestGridSearch_TwoParameters(t *testing.T) {
	g, err := NewGridSearch([]string{"k", "unused"}, [][]float64{{0.1, 0.2}, {1, 2, 3}})
	require.NoError(t, err)
	all, _, err := g.Search(context.Background(), decayBuilder(t), "final_X", 1)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, map[string]float64{"k": 0.1, "unused": 1}, all[0].Params)
	assert.Equal(t, map[string]float64{"k": 0.2, "unused": 3}, all[5].Params)
}

func TestGridSearch_UnknownMetric(t *testing.T) {
	g, _ := NewGridSearch([]string{"k"}, [][]float64{{0.1}})
	_, _, err := g.Search(context.Background(), decayBuilder(t), "peak_X", 1)
	assert.ErrorContains(t, err, "peak_X")
}

func TestGridSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, _ := NewGridSearch([]string{"k"}, [][]float64{{0.1, 0.2}})
	all, _, err := g.Search(ctx, decayBuilder(t), "final_X", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, all)
}
