package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every suite constructs its own Metrics in SetupTest, so repeated
// construction in one process must not collide.
func TestRepeatedConstruction(t *testing.T) {
	for i := 0; i < 3; i++ {
		m := New(nil)
		m.ObserveOperation("register", "ok", time.Millisecond)
	}
}

func TestRegistersOnProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveOperation("renew", "error", 5*time.Millisecond)
	m.ObserveTreeQuery(7)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.Operations.WithLabelValues("renew", "error")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("register", "ok", time.Millisecond)
	m.ObserveTreeQuery(1)
}
