package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStormID(t *testing.T) {
	id, err := ParseStormID("wp012025")
	require.NoError(t, err)
	assert.Equal(t, StormID{Basin: "WP", Number: 1, Year: 2025}, id)
	assert.Equal(t, "WP012025", id.String())

	for _, bad := range []string{"", "WP01", "W1012025", "WP002025", "WPXX2025", "WP01YYYY"} {
		_, err := ParseStormID(bad)
		assert.ErrorIs(t, err, ErrParse, bad)
	}
}

func TestStormID_IsInvest(t *testing.T) {
	assert.False(t, StormID{Basin: "WP", Number: 69, Year: 2025}.IsInvest(70))
	assert.True(t, StormID{Basin: "WP", Number: 70, Year: 2025}.IsInvest(70))
	assert.False(t, StormID{Basin: "WP", Number: 70, Year: 2025}.IsInvest(71))
	assert.True(t, StormID{Basin: "AL", Number: 91, Year: 2025}.IsInvest(DefaultInvestThreshold))
}

func TestNewForecastRecord(t *testing.T) {
	storm := StormID{Basin: "WP", Number: 1, Year: 2025}
	rec, err := NewForecastRecord(storm, "2025060100", " jtwc ", 3)
	require.NoError(t, err)
	assert.Equal(t, "JTWC", rec.Technique)
	assert.Equal(t, 3, rec.TechNum)
	assert.InDelta(t, ToJulianDay(6, 1, 2025, 0), rec.JulianDate, 1e-9)

	_, err = NewForecastRecord(storm, "bad", "JTWC", 1)
	assert.ErrorIs(t, err, ErrParse)

	_, err = NewForecastRecord(storm, "2025060100", "  ", 1)
	assert.ErrorIs(t, err, ErrParse)
}

func TestForecastRecord_AddPoint(t *testing.T) {
	rec := ForecastRecord{}

	require.True(t, rec.AddPoint(TrackPoint{Tau: 24, Lat: 14}))
	require.True(t, rec.AddPoint(TrackPoint{Tau: 0, Lat: 12}))
	require.True(t, rec.AddPoint(TrackPoint{Tau: 12, Lat: 13}))

	taus := []int{}
	for _, tp := range rec.Track {
		taus = append(taus, tp.Tau)
	}
	assert.Equal(t, []int{0, 12, 24}, taus)

	// Same tau merges instead of duplicating.
	require.True(t, rec.AddPoint(TrackPoint{Tau: 12, Lat: 13, MaxWind: IntPtr(50), Radii: []WindRadii{{Threshold: 34, NE: IntPtr(60)}}}))
	require.True(t, rec.AddPoint(TrackPoint{Tau: 12, Lat: 13, Radii: []WindRadii{{Threshold: 64, NE: IntPtr(10)}}}))
	require.Len(t, rec.Track, 3)
	tp, ok := rec.Point(12)
	require.True(t, ok)
	require.NotNil(t, tp.MaxWind)
	assert.Equal(t, 50, *tp.MaxWind)
	require.Len(t, tp.Radii, 2)
	assert.Equal(t, 34, tp.Radii[0].Threshold)
	assert.Equal(t, 64, tp.Radii[1].Threshold)
}

func TestForecastRecord_AddPointHorizon(t *testing.T) {
	rec := ForecastRecord{}
	for i := 0; i < MaxTrackPoints; i++ {
		require.True(t, rec.AddPoint(TrackPoint{Tau: i * 6}))
	}
	assert.False(t, rec.AddPoint(TrackPoint{Tau: MaxTrackPoints * 6}))
	assert.True(t, rec.AddPoint(TrackPoint{Tau: 0, Lat: 1}), "existing tau still merges when full")
	assert.Len(t, rec.Track, MaxTrackPoints)
}

func TestFromSentinel(t *testing.T) {
	assert.Nil(t, FromSentinel(MissingValue))
	assert.Nil(t, FromSentinel(MissingDouble))
	assert.Nil(t, FromSentinel(-MissingDouble))

	got := FromSentinel(44.6)
	require.NotNil(t, got)
	assert.Equal(t, 45, *got)

	zero := FromSentinel(0)
	require.NotNil(t, zero)
	assert.Equal(t, 0, *zero)
}

func TestEnsembleTechnique(t *testing.T) {
	assert.Equal(t, "EC07", EnsembleTechnique(7))
	assert.Equal(t, "EC50", EnsembleTechnique(50))
}
