package pipeline_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/adapter/jsonl"
	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/identity"
	"github.com/couchcryptid/storm-atcf-tracker/internal/notify"
	"github.com/couchcryptid/storm-atcf-tracker/internal/pipeline"
	"github.com/couchcryptid/storm-atcf-tracker/internal/trackstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDirs struct {
	atcf   string
	xref   string
	marker string
}

func newTestProcessor(t *testing.T) (*pipeline.TrackProcessor, testDirs) {
	t.Helper()
	root := t.TempDir()
	dirs := testDirs{
		atcf:   filepath.Join(root, "atcf"),
		xref:   filepath.Join(root, "xref"),
		marker: filepath.Join(root, "marker"),
	}
	for _, d := range []string{dirs.atcf, dirs.xref, dirs.marker} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	require.NoError(t, os.WriteFile(identity.XrefPath(dirs.xref, "jma"), []byte("0001 WP012025\n"), 0o644))

	logger := slog.Default()
	resolver := identity.NewResolver(dirs.xref, time.Second, nil, domain.DefaultInvestThreshold, logger)
	repo := trackstore.NewRepository(dirs.atcf, "dat", time.Second, logger)
	return pipeline.NewProcessor(resolver, repo, nil, newTestMetrics(), logger), dirs
}

func TestTrackProcessor_Process(t *testing.T) {
	proc, dirs := newTestProcessor(t)
	raw := domain.RawEvent{Value: []byte(`{"agency":"jtwc","atcf_id":"WP012025","technique":"JTWC","dtg":"2025060100","lat":12.3,"lon":145.6,"max_wind":45}`)}

	update, err := proc.Process(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "WP012025", update.StormID)
	assert.Equal(t, "jtwc", update.Agency)
	assert.Equal(t, "JTWC", update.Technique)
	assert.Equal(t, "2025060100", update.DTG)
	assert.Equal(t, filepath.Join(dirs.atcf, "AWP012025.dat"), update.Path)
	assert.Equal(t, 1, update.Records)
	assert.True(t, update.Appended)
	assert.False(t, update.ProcessedAt.IsZero())

	again, err := proc.Process(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, again.Appended)
	assert.Equal(t, 1, again.Records)

	data, err := os.ReadFile(update.Path)
	require.NoError(t, err)
	assert.Equal(t, "WP, 01, 2025060100, 01, JTWC,   0, 123N, 1456E,  45\n", string(data))
}

func TestTrackProcessor_ProcessErrors(t *testing.T) {
	proc, dirs := newTestProcessor(t)

	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{name: "invalid json", payload: `not-json{{{`, want: domain.ErrParse},
		{name: "missing technique", payload: `{"agency":"jma","dtg":"2025060106","lat":10,"lon":140}`, want: domain.ErrParse},
		{name: "bad dtg", payload: `{"agency":"jma","technique":"JMA","dtg":"2025133100","lat":10,"lon":140}`, want: domain.ErrParse},
		{name: "unknown agency storm", payload: `{"agency":"jma","agency_id":9,"technique":"JMA","dtg":"2025060106","lat":20,"lon":130}`, want: domain.ErrResolution},
		{name: "malformed atcf id", payload: `{"agency":"jtwc","atcf_id":"W0125","technique":"JTWC","dtg":"2025060106","lat":20,"lon":130}`, want: domain.ErrResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := proc.Process(context.Background(), domain.RawEvent{Value: []byte(tt.payload)})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	entries, err := os.ReadDir(dirs.atcf)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed observations must not create track files")
}

func TestPipeline_MockObservations(t *testing.T) {
	proc, dirs := newTestProcessor(t)
	marker := notify.NewFileMarker(dirs.marker, time.Second)
	reader := jsonl.NewReader(filepath.Join("..", "..", "data", "mock", "observations.jsonl"))
	defer reader.Close()

	p := pipeline.New(reader, proc, marker, slog.Default(), newTestMetrics(), 10)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, pipeline.Stats{Consumed: 7, Appended: 3, Duplicates: 1, Failed: 3}, p.Stats())

	store, err := trackstore.Load(filepath.Join(dirs.atcf, "AWP012025.dat"), slog.Default())
	require.NoError(t, err)
	assert.Zero(t, store.Corrupt)
	assert.Empty(t, trackstore.Check(store))
	require.Len(t, store.Records, 3)

	jma := store.Records[0]
	assert.Equal(t, "JMA", jma.Technique)
	assert.Equal(t, "2025060100", jma.DTG)
	assert.Equal(t, 3, jma.TechNum)
	require.Len(t, jma.Track, 3, "tau 72 has no valid position")
	assert.Equal(t, []int{0, 24, 48}, []int{jma.Track[0].Tau, jma.Track[1].Tau, jma.Track[2].Tau})
	require.NotNil(t, jma.Track[1].RMW)
	assert.Equal(t, 30, *jma.Track[1].RMW)
	assert.Nil(t, jma.Track[2].MaxWind)

	jtwc := store.Records[1]
	assert.Equal(t, "JTWC", jtwc.Technique)
	assert.Equal(t, "2025060100", jtwc.DTG)
	assert.Equal(t, "ONE", jtwc.StormName)
	require.Len(t, jtwc.Track, 3)
	tau24, ok := jtwc.Point(24)
	require.True(t, ok)
	require.Len(t, tau24.Radii, 2)
	assert.Equal(t, 34, tau24.Radii[0].Threshold)
	assert.Equal(t, 64, tau24.Radii[1].Threshold)

	assert.Equal(t, "2025060106", store.Records[2].DTG)

	jtwcMarks, err := os.ReadFile(notify.MarkerPath(dirs.marker, "jtwc"))
	require.NoError(t, err)
	assert.Equal(t, "WP012025\nWP012025\n", string(jtwcMarks))

	jmaMarks, err := os.ReadFile(notify.MarkerPath(dirs.marker, "jma"))
	require.NoError(t, err)
	assert.Equal(t, "WP012025\n", string(jmaMarks))
}
