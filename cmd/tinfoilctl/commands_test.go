package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/tinfoil/internal/hackrf"
	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

func TestFormatHz(t *testing.T) {
	assert.Equal(t, "915 MHz", formatHz(models.MHz(915)))
	assert.Equal(t, "2.4 GHz", formatHz(models.MHz(2400)))
}

func TestPrintPlan(t *testing.T) {
	var buf bytes.Buffer
	plan := models.FrequencyPlan{
		{Frequency: models.MHz(915), Label: &models.FrequencyLabel{Name: "ISM 915"}},
		{Frequency: models.MHz(2400)},
	}
	require.NoError(t, printPlan(&buf, plan))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "915,000,000")
	assert.Contains(t, lines[1], "ISM 915")
	assert.Contains(t, lines[2], "2.4 GHz")
}

func TestPrintLeaderboard(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	var empty bytes.Buffer
	require.NoError(t, printLeaderboard(&empty, nil, now))
	assert.Equal(t, "No results yet.\n", empty.String())

	var buf bytes.Buffer
	require.NoError(t, printLeaderboard(&buf, []models.LeaderboardEntry{
		{Rank: 1, Name: "Alice", HatType: models.HatClassic, AverageAttenuation: 18.234, TestedAt: now.Add(-2 * time.Hour)},
		{Rank: 2, Name: "Bob", HatType: models.HatHybrid, AverageAttenuation: 9.5, TestedAt: now.Add(-26 * time.Hour)},
	}, now))

	out := buf.String()
	assert.Contains(t, out, "1st")
	assert.Contains(t, out, "18.23 dB")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "2nd")
	assert.Contains(t, out, "1 day ago")
}

type unavailable struct{}

func (unavailable) EnsureReady(context.Context) sampler.Availability {
	return sampler.Availability{Err: sampler.ErrDeviceUnavailable}
}

func (unavailable) Sample(context.Context, models.Frequency, int) (float64, error) {
	return 0, sampler.ErrDeviceUnavailable
}

func runCheck(t *testing.T, s deviceChecker, capture bool) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	err := checkDevice(cmd, s, capture, models.MHz(915))
	return buf.String(), err
}

func TestCheckDevice(t *testing.T) {
	t.Run("missing device", func(t *testing.T) {
		out, err := runCheck(t, unavailable{}, false)
		assert.ErrorIs(t, err, sampler.ErrDeviceUnavailable)
		assert.Contains(t, out, "not found")
	})

	t.Run("simulator with capture", func(t *testing.T) {
		s := sampler.New(hackrf.NewSimulator(), sampler.Config{SampleCount: 8192})
		out, err := runCheck(t, s, true)
		require.NoError(t, err)
		assert.Contains(t, out, hackrf.SimulatorSerial)
		assert.Contains(t, out, "915 MHz:")
		assert.Contains(t, out, "dBm")
	})
}
