package invariant_test

import (
	"testing"

	"github.com/smoother-operators/memolith/internal/invariant"
	"github.com/stretchr/testify/require"
)

func TestRaise(t *testing.T) {
	t.Run("increments the violation counter", func(t *testing.T) {
		before := invariant.MetricValue("testcomponent", "counted")

		invariant.Raise("testcomponent", "counted", "Something impossible happened")

		require.Equal(t, before+1, invariant.MetricValue("testcomponent", "counted"))
	})

	t.Run("counts each label pair separately", func(t *testing.T) {
		invariant.Raise("componentone", "kindone", "Something impossible happened")
		invariant.Raise("componentone", "kindone", "Something impossible happened")
		invariant.Raise("componenttwo", "kindtwo", "Something impossible happened")

		require.Equal(t, 2.0, invariant.MetricValue("componentone", "kindone"))
		require.Equal(t, 1.0, invariant.MetricValue("componenttwo", "kindtwo"))
		require.Equal(t, 0.0, invariant.MetricValue("componentone", "kindtwo"))
	})

	t.Run("panics in test mode", func(t *testing.T) {
		invariant.EnableTestMode()

		require.PanicsWithValue(t, "invariant violated in testcomponent: fatal", func() {
			invariant.Raise("testcomponent", "fatal", "Something impossible happened")
		})
	})
}
