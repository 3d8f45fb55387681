// Package atcf encodes and decodes ATCF track lines.
//
// One line carries one track point of one record:
//
//	BASIN, CY, YYYYMMDDHH, TECHNUM, TECH, TAU, LAT, LON, VMAX, MSLP,
//	TY, RAD, WINDCODE, RAD1, RAD2, RAD3, RAD4, POUTER, ROUTER, RMW,
//	GUSTS, EYE, SUBREGION, MAXSEAS, INITIALS, DIR, SPEED, STORMNAME
//
// A point with several wind-radii thresholds is written as one line per
// threshold. Unreported values are left blank and trailing blank fields are
// dropped, so readers must accept short lines.
package atcf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Field positions.
const (
	fieldBasin = iota
	fieldNumber
	fieldDTG
	fieldTechNum
	fieldTech
	fieldTau
	fieldLat
	fieldLon
	fieldVMax
	fieldMSLP
	fieldType
	fieldRad
	fieldWindCode
	fieldRad1
	fieldRad2
	fieldRad3
	fieldRad4
	fieldPOuter
	fieldROuter
	fieldRMW
	fieldGusts
	fieldEye
	fieldSubregion
	fieldMaxSeas
	fieldInitials
	fieldDir
	fieldSpeed
	fieldName

	numFields
)

// minFields is the shortest decodable line: everything up to longitude.
const minFields = fieldLon + 1

// Line is one decoded ATCF line.
type Line struct {
	Basin     string
	Number    int
	DTG       string
	TechNum   int
	Technique string
	StormName string
	Point     domain.TrackPoint
}

// EncodeRecord renders every track point of rec as ATCF lines.
func EncodeRecord(rec domain.ForecastRecord) []string {
	lines := make([]string, 0, len(rec.Track))
	for _, tp := range rec.Track {
		if len(tp.Radii) == 0 {
			lines = append(lines, encodeLine(rec, tp, nil))
			continue
		}
		for i := range tp.Radii {
			lines = append(lines, encodeLine(rec, tp, &tp.Radii[i]))
		}
	}
	return lines
}

// WriteRecords writes the lines of every record to w in order.
func WriteRecords(w io.Writer, recs []domain.ForecastRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		for _, line := range EncodeRecord(rec) {
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func encodeLine(rec domain.ForecastRecord, tp domain.TrackPoint, wr *domain.WindRadii) string {
	f := make([]string, numFields)
	f[fieldBasin] = rec.Storm.Basin
	f[fieldNumber] = fmt.Sprintf("%02d", rec.Storm.Number)
	f[fieldDTG] = rec.DTG
	f[fieldTechNum] = fmt.Sprintf("%02d", rec.TechNum)
	f[fieldTech] = fmt.Sprintf("%-4s", rec.Technique)
	f[fieldTau] = fmt.Sprintf("%3d", tp.Tau)
	f[fieldLat] = EncodeLat(tp.Lat)
	f[fieldLon] = EncodeLon(tp.Lon)
	f[fieldVMax] = formatOptional("%3d", tp.MaxWind)
	f[fieldMSLP] = formatOptional("%4d", tp.Pressure)
	f[fieldType] = tp.StormType
	if wr != nil {
		f[fieldRad] = fmt.Sprintf("%3d", wr.Threshold)
		f[fieldWindCode] = "NEQ"
		for i, q := range wr.Quadrants() {
			f[fieldRad1+i] = formatOptional("%4d", q)
		}
	}
	f[fieldRMW] = formatOptional("%3d", tp.RMW)
	f[fieldName] = rec.StormName

	last := len(f) - 1
	for last > fieldLon && f[last] == "" {
		last--
	}
	return strings.Join(f[:last+1], ", ")
}

func formatOptional(format string, v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(format, *v)
}

// EncodeLat renders latitude as tenths of a degree with a hemisphere letter, e.g. "123S".
func EncodeLat(lat float64) string {
	tenths, neg := tenthsOf(lat)
	hemi := "N"
	if neg {
		hemi = "S"
	}
	return fmt.Sprintf("%03d%s", tenths, hemi)
}

// EncodeLon renders longitude as tenths of a degree with a hemisphere letter,
// e.g. "1456E". Longitudes beyond ±180 are wrapped first.
func EncodeLon(lon float64) string {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	tenths, neg := tenthsOf(lon)
	hemi := "E"
	if neg {
		hemi = "W"
	}
	return fmt.Sprintf("%04d%s", tenths, hemi)
}

func tenthsOf(v float64) (int, bool) {
	tenths := int(math.Round(math.Abs(v) * 10))
	return tenths, v < 0 && tenths != 0
}

// DecodeLat parses "123S" (or the legacy "12.3S") into signed degrees.
func DecodeLat(s string) (float64, error) {
	return decodeCoord(s, 'N', 'S', 90)
}

// DecodeLon parses "1456E" (or the legacy "145.6E") into signed degrees.
func DecodeLon(s string) (float64, error) {
	return decodeCoord(s, 'E', 'W', 360)
}

func decodeCoord(s string, pos, neg byte, limit float64) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("coordinate %q too short", s)
	}
	hemi := s[len(s)-1]
	if hemi != pos && hemi != neg {
		return 0, fmt.Errorf("coordinate %q: hemisphere must be %c or %c", s, pos, neg)
	}
	digits := strings.TrimSpace(s[:len(s)-1])

	var v float64
	if strings.Contains(digits, ".") {
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return 0, fmt.Errorf("coordinate %q: %w", s, err)
		}
		v = f
	} else {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0, fmt.Errorf("coordinate %q: %w", s, err)
		}
		v = float64(n) / 10.0
	}
	if v < 0 || v > limit {
		return 0, fmt.Errorf("coordinate %q out of range", s)
	}
	if hemi == neg {
		v = -v
	}
	return v, nil
}

// DecodeLine parses one ATCF line. Errors wrap domain.ErrStoreCorruption.
func DecodeLine(line string) (Line, error) {
	raw := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(raw) < minFields {
		return Line{}, fmt.Errorf("%w: %d fields, want at least %d", domain.ErrStoreCorruption, len(raw), minFields)
	}
	f := make([]string, numFields)
	for i := 0; i < len(raw) && i < numFields; i++ {
		f[i] = strings.TrimSpace(raw[i])
	}

	out := Line{
		Basin:     strings.ToUpper(f[fieldBasin]),
		DTG:       f[fieldDTG],
		Technique: domain.NormalizeTechnique(f[fieldTech]),
		StormName: f[fieldName],
	}
	// The name is the last field; a comma inside it is part of the name.
	if len(raw) > fieldName+1 {
		out.StormName = strings.TrimSpace(strings.Join(raw[fieldName:], ","))
	}
	if len(out.Basin) != 2 {
		return Line{}, fmt.Errorf("%w: basin %q", domain.ErrStoreCorruption, f[fieldBasin])
	}
	if _, err := domain.ParseDTG(out.DTG); err != nil {
		return Line{}, fmt.Errorf("%w: %v", domain.ErrStoreCorruption, err)
	}
	if out.Technique == "" {
		return Line{}, fmt.Errorf("%w: empty technique", domain.ErrStoreCorruption)
	}

	var err error
	if out.Number, err = strconv.Atoi(f[fieldNumber]); err != nil {
		return Line{}, fmt.Errorf("%w: cyclone number %q", domain.ErrStoreCorruption, f[fieldNumber])
	}
	if out.TechNum, err = atoiOrZero(f[fieldTechNum]); err != nil {
		return Line{}, fmt.Errorf("%w: technique number %q", domain.ErrStoreCorruption, f[fieldTechNum])
	}

	tp := domain.TrackPoint{StormType: f[fieldType]}
	if tp.Tau, err = strconv.Atoi(f[fieldTau]); err != nil {
		return Line{}, fmt.Errorf("%w: tau %q", domain.ErrStoreCorruption, f[fieldTau])
	}
	if tp.Lat, err = DecodeLat(f[fieldLat]); err != nil {
		return Line{}, fmt.Errorf("%w: %v", domain.ErrStoreCorruption, err)
	}
	if tp.Lon, err = DecodeLon(f[fieldLon]); err != nil {
		return Line{}, fmt.Errorf("%w: %v", domain.ErrStoreCorruption, err)
	}
	if tp.MaxWind, err = parseOptional(f[fieldVMax]); err != nil {
		return Line{}, fmt.Errorf("%w: vmax %q", domain.ErrStoreCorruption, f[fieldVMax])
	}
	if tp.Pressure, err = parseOptional(f[fieldMSLP]); err != nil {
		return Line{}, fmt.Errorf("%w: mslp %q", domain.ErrStoreCorruption, f[fieldMSLP])
	}
	if tp.RMW, err = parseOptional(f[fieldRMW]); err != nil {
		return Line{}, fmt.Errorf("%w: rmw %q", domain.ErrStoreCorruption, f[fieldRMW])
	}

	wr, ok, err := decodeRadii(f)
	if err != nil {
		return Line{}, err
	}
	if ok {
		tp.Radii = []domain.WindRadii{wr}
	}

	out.Point = tp
	return out, nil
}

func decodeRadii(f []string) (domain.WindRadii, bool, error) {
	threshold, err := atoiOrZero(f[fieldRad])
	if err != nil {
		return domain.WindRadii{}, false, fmt.Errorf("%w: rad %q", domain.ErrStoreCorruption, f[fieldRad])
	}
	if threshold <= 0 {
		return domain.WindRadii{}, false, nil
	}

	var quads [4]*int
	for i, idx := range []int{fieldRad1, fieldRad2, fieldRad3, fieldRad4} {
		v, err := parseOptional(f[idx])
		if err != nil {
			return domain.WindRadii{}, false, fmt.Errorf("%w: radius %q", domain.ErrStoreCorruption, f[idx])
		}
		quads[i] = v
	}
	// AAA: full circle, one radius for every quadrant.
	if strings.EqualFold(f[fieldWindCode], "AAA") {
		quads = [4]*int{quads[0], quads[0], quads[0], quads[0]}
	}
	return domain.WindRadii{Threshold: threshold, NE: quads[0], SE: quads[1], SW: quads[2], NW: quads[3]}, true, nil
}

func parseOptional(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return domain.FromSentinel(v), nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
