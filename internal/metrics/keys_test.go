package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterKeyGauge(t *testing.T) {
	provider, err := NewProvider()
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	counts := KeyCounts{Active: 2, TimedOut: 1}
	require.NoError(t, RegisterKeyGauge(provider.MeterProvider(), "keymanager_test", func() KeyCounts {
		return counts
	}))

	output := scrape(t, provider)
	assertMetricLine(t, output, `keymanager_test_loaded_keys`, `state="active"`, `2`)
	assertMetricLine(t, output, `keymanager_test_loaded_keys`, `state="timed_out"`, `1`)

	counts = KeyCounts{Active: 0, TimedOut: 3}
	output = scrape(t, provider)
	assertMetricLine(t, output, `keymanager_test_loaded_keys`, `state="active"`, `0`)
	assertMetricLine(t, output, `keymanager_test_loaded_keys`, `state="timed_out"`, `3`)
}
