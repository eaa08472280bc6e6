package observe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSignals(t *testing.T) {
	for name, want := range map[string]string{
		ReactionRegistered.Name():   "observe.reaction.registered",
		ReactionUnregistered.Name(): "observe.reaction.unregistered",
		ReactionRejected.Name():     "observe.reaction.rejected",
		ReactionFailed.Name():       "observe.reaction.failed",
		DispatchSettled.Name():      "observe.dispatch.settled",
		AppActivated.Name():         "observe.app.activated",
		AppDeactivated.Name():       "observe.app.deactivated",
	} {
		assert.Equal(t, want, name)
	}
}

func TestFieldKeys(t *testing.T) {
	for name, want := range map[string]string{
		KeyReaction.Field("r").Key().Name(): "reaction",
		KeyBatch.Field("b").Key().Name():    "batch",
		KeyWaves.Field(1).Key().Name():      "waves",
		KeyReactions.Field(1).Key().Name():  "reactions",
		KeyElements.Field(1).Key().Name():   "elements",
		KeyTotalWaves.Field(1).Key().Name(): "total_waves",
		KeyPending.Field(1).Key().Name():    "pending",
	} {
		assert.Equal(t, want, name)
	}
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	app := newApp(t, WithMeterProvider(provider))

	a := NewElement("A")
	n := NewProperty(a, "n", 0)
	b := NewElement("B")
	text := NewProperty(b, "text", "")
	require.NoError(t, app.Mount(a, b))

	_, err := app.When(format("%v"), n.Modified(), text.Update(), Named("show"))
	require.NoError(t, err)
	_, err = app.When(Sync(func(ctx context.Context, c *Call) ([]any, error) {
		return nil, errBoom
	}), n.Modified(), Named("broken"))
	require.NoError(t, err)

	activate(t, app)
	n.Set(1)
	n.Set(2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	waves := uint64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					waves += dp.Count
				}
			}
		}
	}

	// each Set fires n, then show's write fires text
	assert.Equal(t, int64(4), sums["observe_firings_total"])
	assert.Equal(t, int64(4), sums["observe_invocations_total"])
	assert.Equal(t, int64(2), sums["observe_callback_failures_total"])
	assert.Equal(t, uint64(2), waves, "one histogram record per dispatch")
}
