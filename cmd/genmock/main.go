// Command genmock generates a synthetic storm as a JSON-lines observation
// fixture together with the ATCF track file the pipeline is expected to
// produce from it. It builds the expected records with the real domain and
// codec packages so the fixture matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -storm WP272025 -agency jtwc -technique JTWC -start 2025101200 -steps 12 \
//	  -obs-out data/mock/wp272025.jsonl \
//	  -atcf-out data/mock/AWP272025.dat
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/atcf"
	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Forecast taus attached to every synthetic bulletin.
var forecastTaus = []int{12, 24, 36, 48, 72, 96, 120}

type params struct {
	storm     domain.StormID
	agency    string
	technique string
	name      string
	start     time.Time
	steps     int
	lat, lon  float64
	heading   float64 // degrees clockwise from north
	speed     float64 // kt
	vmax      float64 // kt at the first fix
	intensify float64 // kt per 6 h
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stormID := flag.String("storm", "WP272025", "ATCF ID of the synthetic storm")
	agency := flag.String("agency", "jtwc", "issuing agency")
	technique := flag.String("technique", "JTWC", "technique code")
	name := flag.String("name", "MOCK", "storm name")
	start := flag.String("start", "2025101200", "DTG of the first bulletin")
	steps := flag.Int("steps", 12, "number of 6-hourly bulletins")
	lat := flag.Float64("lat", 12.0, "initial latitude")
	lon := flag.Float64("lon", 145.0, "initial longitude (east positive)")
	heading := flag.Float64("heading", 300, "motion heading in degrees")
	speed := flag.Float64("speed", 10, "motion speed in kt")
	vmax := flag.Float64("vmax", 35, "initial intensity in kt")
	obsOut := flag.String("obs-out", "", "output path for the observation JSON-lines fixture")
	atcfOut := flag.String("atcf-out", "", "output path for the expected ATCF track file")
	flag.Parse()

	if *obsOut == "" || *atcfOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -obs-out, -atcf-out")
	}

	storm, err := domain.ParseStormID(*stormID)
	if err != nil {
		return err
	}
	startTime, err := domain.ParseDTG(*start)
	if err != nil {
		return err
	}

	p := params{
		storm: storm, agency: *agency, technique: *technique, name: *name,
		start: startTime, steps: *steps,
		lat: *lat, lon: *lon, heading: *heading, speed: *speed,
		vmax: *vmax, intensify: 5,
	}

	observations := generate(p)

	recs := make([]domain.ForecastRecord, 0, len(observations))
	for _, obs := range observations {
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("generated invalid observation %s: %w", obs.DTG, err)
		}
		rec, dropped, err := domain.BuildRecord(obs, storm)
		if err != nil {
			return fmt.Errorf("build record %s: %w", obs.DTG, err)
		}
		if dropped > 0 {
			log.Printf("%s: %d forecast positions dropped", obs.DTG, dropped)
		}
		recs = append(recs, rec)
	}

	if err := writeObservations(*obsOut, observations); err != nil {
		return fmt.Errorf("writing observation fixture: %w", err)
	}
	log.Printf("wrote observation fixture: %s (%d bulletins)", *obsOut, len(observations))

	if err := writeTrack(*atcfOut, recs); err != nil {
		return fmt.Errorf("writing track fixture: %w", err)
	}
	log.Printf("wrote track fixture: %s", *atcfOut)
	return nil
}

// generate moves the storm along a constant heading, intensifying linearly,
// and attaches an extrapolated forecast to each bulletin.
func generate(p params) []domain.Observation {
	out := make([]domain.Observation, 0, p.steps)
	lat, lon, vmax := p.lat, p.lon, p.vmax
	for i := 0; i < p.steps; i++ {
		ref := p.start.Add(time.Duration(i*6) * time.Hour)
		obs := domain.Observation{
			Agency:    p.agency,
			StormID:   p.storm.String(),
			Technique: p.technique,
			StormName: p.name,
			DTG:       domain.FormatDTG(ref),
			Lat:       round1(lat),
			Lon:       round1(lon),
			MaxWind:   floatPtr(vmax),
			Pressure:  floatPtr(pressureFor(vmax)),
			StormType: stormType(vmax),
			Radii:     radiiFor(vmax),
		}
		for _, tau := range forecastTaus {
			flat, flon := advance(lat, lon, p.heading, p.speed*float64(tau))
			fv := vmax + p.intensify*float64(tau)/6
			obs.Forecasts = append(obs.Forecasts, domain.ForecastPosition{
				Tau:       tau,
				Lat:       round1(flat),
				Lon:       round1(flon),
				MaxWind:   floatPtr(fv),
				StormType: stormType(fv),
				Radii:     radiiFor(fv),
			})
		}
		out = append(out, obs)

		lat, lon = advance(lat, lon, p.heading, p.speed*6)
		vmax += p.intensify
	}
	return out
}

// advance moves a position dist nautical miles along heading on a locally flat earth.
func advance(lat, lon, heading, dist float64) (float64, float64) {
	rad := heading * math.Pi / 180
	dlat := dist * math.Cos(rad) / 60
	dlon := dist * math.Sin(rad) / (60 * math.Cos(lat*math.Pi/180))
	return lat + dlat, lon + dlon
}

// pressureFor is a rough wind-pressure relationship for the western Pacific.
func pressureFor(vmax float64) float64 {
	return math.Round(1010 - math.Pow(vmax/6.7, 1/0.644))
}

func stormType(vmax float64) string {
	switch {
	case vmax >= 64:
		return "TY"
	case vmax >= 34:
		return "TS"
	default:
		return "TD"
	}
}

func radiiFor(vmax float64) []domain.RadiiReport {
	var radii []domain.RadiiReport
	for _, th := range []int{34, 50, 64} {
		if vmax < float64(th) {
			break
		}
		r := math.Round((vmax - float64(th) + 20) * 2)
		radii = append(radii, domain.RadiiReport{
			Threshold: th,
			NE:        floatPtr(r),
			SE:        floatPtr(math.Round(r * 0.9)),
			SW:        floatPtr(math.Round(r * 0.8)),
			NW:        floatPtr(math.Round(r * 0.9)),
		})
	}
	return radii
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func floatPtr(v float64) *float64 { return &v }

func writeObservations(path string, observations []domain.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, obs := range observations {
		if err := enc.Encode(obs); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTrack(path string, recs []domain.ForecastRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := atcf.WriteRecords(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
