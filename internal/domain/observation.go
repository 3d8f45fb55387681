package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Message is the raw bulletin an observation was parsed from, kept for archiving.
type Message struct {
	Header   string `json:"header"`             // WMO abbreviated heading, e.g. "WTPQ20 RJTD 010000"
	Type     string `json:"type"`               // FORECAST, ADVISORY, DISCUSSION, ...
	Advisory int    `json:"advisory,omitempty"` // advisory number when the agency numbers them
	Movement string `json:"movement,omitempty"`
	Text     string `json:"text"`
}

// RadiiReport is one wind threshold as reported by a bulletin parser. Quadrants
// may be nil or a legacy sentinel.
type RadiiReport struct {
	Threshold int      `json:"threshold"`
	NE        *float64 `json:"ne,omitempty"`
	SE        *float64 `json:"se,omitempty"`
	SW        *float64 `json:"sw,omitempty"`
	NW        *float64 `json:"nw,omitempty"`
}

// ForecastPosition is one forecast position reported by a bulletin. Missing
// measurements may arrive as nil or as a legacy sentinel.
type ForecastPosition struct {
	Tau        int           `json:"tau"`
	Lat        float64       `json:"lat"`
	Lon        float64       `json:"lon"`
	MaxWind    *float64      `json:"max_wind,omitempty"`
	Pressure   *float64      `json:"pressure,omitempty"`
	MaxWindLat *float64      `json:"max_wind_lat,omitempty"`
	MaxWindLon *float64      `json:"max_wind_lon,omitempty"`
	StormType  string        `json:"storm_type,omitempty"`
	Radii      []RadiiReport `json:"radii,omitempty"`
}

// Observation is the normalized output of an agency bulletin parser.
type Observation struct {
	Agency     string `json:"agency"`           // cross-reference scope, e.g. "jma", "pag"
	Source     string `json:"source,omitempty"` // track file suffix family; defaults per deployment
	AgencyID   *int   `json:"agency_id,omitempty"`
	AgencyYear int    `json:"agency_year,omitempty"`
	StormID    string `json:"atcf_id,omitempty"` // set by agencies that publish ATCF IDs themselves

	Technique string `json:"technique"`
	TechNum   int    `json:"tech_num,omitempty"`
	StormName string `json:"storm_name,omitempty"`

	// Either DTG, or Day and Hour resolved against today's date.
	DTG  string `json:"dtg,omitempty"`
	Day  int    `json:"day,omitempty"`
	Hour int    `json:"hour,omitempty"`

	Lat       float64       `json:"lat"`
	Lon       float64       `json:"lon"`
	MaxWind   *float64      `json:"max_wind,omitempty"`
	Pressure  *float64      `json:"pressure,omitempty"`
	RMW       *float64      `json:"rmw,omitempty"`
	StormType string        `json:"storm_type,omitempty"`
	Radii     []RadiiReport `json:"radii,omitempty"`

	Forecasts []ForecastPosition `json:"forecasts,omitempty"`
	Message   *Message           `json:"message,omitempty"`
}

// ParseObservation decodes and validates a JSON observation.
func ParseObservation(data []byte) (Observation, error) {
	var obs Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return Observation{}, fmt.Errorf("%w: decode observation: %v", ErrParse, err)
	}
	if err := obs.Validate(); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

// Validate checks the fields every record needs.
func (o Observation) Validate() error {
	if strings.TrimSpace(o.Agency) == "" {
		return fmt.Errorf("%w: missing agency", ErrParse)
	}
	if NormalizeTechnique(o.Technique) == "" {
		return fmt.Errorf("%w: missing technique", ErrParse)
	}
	if o.DTG == "" && o.Day == 0 {
		return fmt.Errorf("%w: missing reference time", ErrParse)
	}
	if !validPosition(o.Lat, o.Lon) {
		return fmt.Errorf("%w: fix position %.2f/%.2f out of range", ErrParse, o.Lat, o.Lon)
	}
	return nil
}

// ReferenceTime returns the bulletin's reference time.
func (o Observation) ReferenceTime() (time.Time, error) {
	if o.DTG != "" {
		return ParseDTG(o.DTG)
	}
	return BulletinTime(o.Day, o.Hour)
}

// BuildRecord converts an observation for a resolved storm into a ForecastRecord.
// Forecast positions at tau 0, with invalid coordinates or beyond the track
// horizon are dropped; the number dropped is returned. Negative taus are past
// positions and are kept.
func BuildRecord(o Observation, storm StormID) (ForecastRecord, int, error) {
	ref, err := o.ReferenceTime()
	if err != nil {
		return ForecastRecord{}, 0, err
	}
	techNum := o.TechNum
	if techNum == 0 {
		techNum = 1
	}
	rec, err := NewForecastRecord(storm, FormatDTG(ref), o.Technique, techNum)
	if err != nil {
		return ForecastRecord{}, 0, err
	}
	rec.StormName = strings.ToUpper(strings.TrimSpace(o.StormName))

	rec.AddPoint(TrackPoint{
		Tau:       0,
		Lat:       o.Lat,
		Lon:       o.Lon,
		MaxWind:   optional(o.MaxWind),
		Pressure:  optional(o.Pressure),
		RMW:       optional(o.RMW),
		StormType: o.StormType,
		Radii:     windRadii(o.Radii),
	})

	dropped := 0
	for _, fp := range o.Forecasts {
		if fp.Tau == 0 || !validPosition(fp.Lat, fp.Lon) {
			dropped++
			continue
		}
		tp := TrackPoint{
			Tau:       fp.Tau,
			Lat:       fp.Lat,
			Lon:       fp.Lon,
			MaxWind:   optional(fp.MaxWind),
			Pressure:  optional(fp.Pressure),
			StormType: fp.StormType,
			Radii:     windRadii(fp.Radii),
		}
		if fp.MaxWindLat != nil && fp.MaxWindLon != nil && validPosition(*fp.MaxWindLat, *fp.MaxWindLon) {
			tp.RMW = IntPtr(int(math.Round(RadiusOfMaxWind(fp.Lat, fp.Lon, *fp.MaxWindLat, *fp.MaxWindLon))))
		}
		if !rec.AddPoint(tp) {
			dropped++
		}
	}
	return rec, dropped, nil
}

func optional(v *float64) *int {
	if v == nil {
		return nil
	}
	return FromSentinel(*v)
}

// windRadii converts reported radii, mapping sentinels to nil and dropping
// thresholds with no quadrant reported.
func windRadii(in []RadiiReport) []WindRadii {
	var out []WindRadii
	for _, r := range in {
		if r.Threshold <= 0 {
			continue
		}
		wr := WindRadii{
			Threshold: r.Threshold,
			NE:        optional(r.NE),
			SE:        optional(r.SE),
			SW:        optional(r.SW),
			NW:        optional(r.NW),
		}
		if wr.NE == nil && wr.SE == nil && wr.SW == nil && wr.NW == nil {
			continue
		}
		out = append(out, wr)
	}
	return out
}

func validPosition(lat, lon float64) bool {
	if IsMissing(lat) || IsMissing(lon) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 360
}
