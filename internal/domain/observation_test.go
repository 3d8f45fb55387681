package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStorm = StormID{Basin: "WP", Number: 1, Year: 2025}

func floatPtr(v float64) *float64 { return &v }

func TestParseObservation(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		data := []byte(`{"agency":"jma","agency_id":2501,"technique":"RJTD","dtg":"2025060100","lat":12.3,"lon":145.6,"max_wind":45}`)
		obs, err := ParseObservation(data)
		require.NoError(t, err)
		assert.Equal(t, "jma", obs.Agency)
		require.NotNil(t, obs.AgencyID)
		assert.Equal(t, 2501, *obs.AgencyID)
		assert.InDelta(t, 45, *obs.MaxWind, 1e-9)
	})

	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{not json`},
		{"missing agency", `{"technique":"RJTD","dtg":"2025060100","lat":1,"lon":1}`},
		{"missing technique", `{"agency":"jma","dtg":"2025060100","lat":1,"lon":1}`},
		{"missing time", `{"agency":"jma","technique":"RJTD","lat":1,"lon":1}`},
		{"bad latitude", `{"agency":"jma","technique":"RJTD","dtg":"2025060100","lat":95,"lon":1}`},
		{"sentinel latitude", `{"agency":"jma","technique":"RJTD","dtg":"2025060100","lat":-999,"lon":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseObservation([]byte(tt.data))
			require.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestBuildRecord(t *testing.T) {
	obs := Observation{
		Agency:    "jtwc",
		Technique: "JTWC",
		DTG:       "2025060100",
		Lat:       12.3,
		Lon:       145.6,
		MaxWind:   floatPtr(45),
		Pressure:  floatPtr(MissingValue),
		StormName: " wutip ",
		Forecasts: []ForecastPosition{
			{Tau: 24, Lat: 14.0, Lon: 143.0, MaxWind: floatPtr(60)},
			{Tau: 12, Lat: 13.1, Lon: 144.4, MaxWind: floatPtr(MissingDouble)},
			{Tau: 36, Lat: MissingDouble, Lon: 142.0},
		},
	}

	rec, dropped, err := BuildRecord(obs, testStorm)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "2025060100", rec.DTG)
	assert.Equal(t, "JTWC", rec.Technique)
	assert.Equal(t, 1, rec.TechNum)
	assert.Equal(t, "WUTIP", rec.StormName)
	assert.InDelta(t, ToJulianDay(6, 1, 2025, 0), rec.JulianDate, 1e-9)

	want := []TrackPoint{
		{Tau: 0, Lat: 12.3, Lon: 145.6, MaxWind: IntPtr(45)},
		{Tau: 12, Lat: 13.1, Lon: 144.4},
		{Tau: 24, Lat: 14.0, Lon: 143.0, MaxWind: IntPtr(60)},
	}
	if diff := cmp.Diff(want, rec.Track); diff != "" {
		t.Fatalf("track mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRecord_DerivesRMW(t *testing.T) {
	obs := Observation{
		Agency:    "ecmf",
		Technique: EnsembleTechnique(3),
		DTG:       "2025060112",
		Lat:       15,
		Lon:       130,
		Forecasts: []ForecastPosition{
			{Tau: 6, Lat: 15, Lon: 130, MaxWindLat: floatPtr(15.5), MaxWindLon: floatPtr(130)},
			{Tau: 12, Lat: 15, Lon: 130, MaxWindLat: floatPtr(15), MaxWindLon: floatPtr(130 + 200.0/EarthRadiusKM*180/math.Pi)},
		},
	}

	rec, _, err := BuildRecord(obs, testStorm)
	require.NoError(t, err)
	require.Len(t, rec.Track, 3)
	require.NotNil(t, rec.Track[1].RMW)
	assert.Equal(t, 30, *rec.Track[1].RMW)
	require.NotNil(t, rec.Track[2].RMW)
	assert.Equal(t, 70, *rec.Track[2].RMW)
	assert.Equal(t, "EC03", rec.Technique)
}

func TestBuildRecord_DayHourOnly(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.January, 3, 4, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	obs := Observation{Agency: "pag", Technique: "RPMM", Day: 31, Hour: 18, Lat: 10, Lon: 128}
	rec, _, err := BuildRecord(obs, testStorm)
	require.NoError(t, err)
	assert.Equal(t, "2024123118", rec.DTG)
}

func TestBuildRecord_RadiiSentinels(t *testing.T) {
	data := []byte(`{"agency":"jtwc","technique":"JTWC","dtg":"2025060100","lat":12.3,"lon":145.6,
		"radii":[
			{"threshold":34,"ne":60,"se":-999,"sw":-999,"nw":50},
			{"threshold":50,"ne":1e100,"se":-999,"sw":-999,"nw":-999},
			{"threshold":64,"ne":20}
		]}`)
	obs, err := ParseObservation(data)
	require.NoError(t, err)

	rec, _, err := BuildRecord(obs, testStorm)
	require.NoError(t, err)
	require.Len(t, rec.Track, 1)

	want := []WindRadii{
		{Threshold: 34, NE: IntPtr(60), NW: IntPtr(50)},
		{Threshold: 64, NE: IntPtr(20)},
	}
	if diff := cmp.Diff(want, rec.Track[0].Radii); diff != "" {
		t.Fatalf("radii mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRecord_Taus(t *testing.T) {
	tests := []struct {
		name     string
		taus     []int
		wantTaus []int
		dropped  int
	}{
		{"past position kept", []int{-12, 12}, []int{-12, 0, 12}, 0},
		{"second analysis dropped", []int{0, 12}, []int{0, 12}, 1},
		{"past only", []int{-6}, []int{-6, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := Observation{Agency: "jtwc", Technique: "JTWC", DTG: "2025060100", Lat: 12, Lon: 145}
			for _, tau := range tt.taus {
				obs.Forecasts = append(obs.Forecasts, ForecastPosition{Tau: tau, Lat: 12, Lon: 145})
			}

			rec, dropped, err := BuildRecord(obs, testStorm)
			require.NoError(t, err)
			assert.Equal(t, tt.dropped, dropped)
			var got []int
			for _, tp := range rec.Track {
				got = append(got, tp.Tau)
			}
			assert.Equal(t, tt.wantTaus, got)
		})
	}
}
