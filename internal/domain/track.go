package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// MaxTrackPoints bounds the forecast horizon of a single record.
const MaxTrackPoints = 36

// Legacy missing-value sentinels still produced by upstream parsers.
const (
	MissingValue  = -999.0
	MissingDouble = 1.0e100
)

// WindRadii holds the quadrant radii (nm) of one wind threshold (34, 50 or 64 kt).
// A nil quadrant was not reported.
type WindRadii struct {
	Threshold int  `json:"threshold"`
	NE        *int `json:"ne,omitempty"`
	SE        *int `json:"se,omitempty"`
	SW        *int `json:"sw,omitempty"`
	NW        *int `json:"nw,omitempty"`
}

// NewWindRadii builds a threshold with all four quadrants reported.
func NewWindRadii(threshold, ne, se, sw, nw int) WindRadii {
	return WindRadii{Threshold: threshold, NE: IntPtr(ne), SE: IntPtr(se), SW: IntPtr(sw), NW: IntPtr(nw)}
}

// Quadrants returns the radii in NE, SE, SW, NW order.
func (w WindRadii) Quadrants() [4]*int {
	return [4]*int{w.NE, w.SE, w.SW, w.NW}
}

// TrackPoint is one fix or forecast position of a record. Nil measurements
// were not reported.
type TrackPoint struct {
	Tau       int         `json:"tau"`
	Lat       float64     `json:"lat"`
	Lon       float64     `json:"lon"`
	MaxWind   *int        `json:"max_wind,omitempty"` // kt
	Pressure  *int        `json:"pressure,omitempty"` // hPa
	RMW       *int        `json:"rmw,omitempty"`      // nm
	StormType string      `json:"storm_type,omitempty"`
	Radii     []WindRadii `json:"radii,omitempty"`
}

// ForecastRecord is one agency product for one storm at one reference time.
type ForecastRecord struct {
	Storm      StormID
	DTG        string
	Technique  string
	TechNum    int
	StormName  string
	JulianDate float64
	Track      []TrackPoint
}

// NewForecastRecord builds an empty record and derives its Julian date from dtg.
func NewForecastRecord(storm StormID, dtg, technique string, techNum int) (ForecastRecord, error) {
	jd, err := JulianFromDTG(dtg)
	if err != nil {
		return ForecastRecord{}, err
	}
	technique = NormalizeTechnique(technique)
	if technique == "" {
		return ForecastRecord{}, fmt.Errorf("%w: empty technique", ErrParse)
	}
	return ForecastRecord{
		Storm:      storm,
		DTG:        dtg,
		Technique:  technique,
		TechNum:    techNum,
		JulianDate: jd,
	}, nil
}

// AddPoint inserts p keeping the track ordered by tau. A point with the same
// tau as an existing one is merged into it: reported measurements overwrite,
// radii thresholds are combined. It returns false when the record already
// holds MaxTrackPoints distinct taus.
func (r *ForecastRecord) AddPoint(p TrackPoint) bool {
	i, found := slices.BinarySearchFunc(r.Track, p.Tau, func(tp TrackPoint, tau int) int {
		return tp.Tau - tau
	})
	if found {
		r.Track[i] = mergePoints(r.Track[i], p)
		return true
	}
	if len(r.Track) >= MaxTrackPoints {
		return false
	}
	r.Track = slices.Insert(r.Track, i, p)
	return true
}

// Point returns the track point at tau.
func (r *ForecastRecord) Point(tau int) (TrackPoint, bool) {
	for _, tp := range r.Track {
		if tp.Tau == tau {
			return tp, true
		}
	}
	return TrackPoint{}, false
}

func mergePoints(dst, src TrackPoint) TrackPoint {
	dst.Lat, dst.Lon = src.Lat, src.Lon
	if src.MaxWind != nil {
		dst.MaxWind = src.MaxWind
	}
	if src.Pressure != nil {
		dst.Pressure = src.Pressure
	}
	if src.RMW != nil {
		dst.RMW = src.RMW
	}
	if src.StormType != "" {
		dst.StormType = src.StormType
	}
	for _, wr := range src.Radii {
		dst.SetRadii(wr)
	}
	return dst
}

// SetRadii adds or replaces the radii for wr.Threshold, keeping thresholds ascending.
func (p *TrackPoint) SetRadii(wr WindRadii) {
	for i := range p.Radii {
		if p.Radii[i].Threshold == wr.Threshold {
			p.Radii[i] = wr
			return
		}
	}
	p.Radii = append(p.Radii, wr)
	slices.SortFunc(p.Radii, func(a, b WindRadii) int { return a.Threshold - b.Threshold })
}

// NormalizeTechnique upper-cases and trims a technique code to at most four characters.
func NormalizeTechnique(tech string) string {
	tech = strings.ToUpper(strings.TrimSpace(tech))
	if len(tech) > 4 {
		tech = tech[:4]
	}
	return tech
}

// EnsembleTechnique returns the technique code of ECMWF ensemble member n, e.g. "EC07".
func EnsembleTechnique(member int) string {
	return fmt.Sprintf("EC%02d", member)
}

// IsMissing reports whether v is a legacy missing-value sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || v == MissingValue || math.Abs(v) >= MissingDouble
}

// FromSentinel rounds v to an int, or returns nil for missing values.
func FromSentinel(v float64) *int {
	if IsMissing(v) {
		return nil
	}
	n := int(math.Round(v))
	return &n
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
