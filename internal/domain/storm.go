package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultInvestThreshold is the conventional first invest cyclone number.
const DefaultInvestThreshold = 70

// StormID is a global ATCF storm identifier.
type StormID struct {
	Basin  string
	Number int
	Year   int
}

// ParseStormID parses an ATCF ID such as "WP012025".
func ParseStormID(s string) (StormID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 8 {
		return StormID{}, fmt.Errorf("%w: atcf id %q: want 8 characters", ErrParse, s)
	}
	basin := s[:2]
	if !isBasinCode(basin) {
		return StormID{}, fmt.Errorf("%w: atcf id %q: bad basin", ErrParse, s)
	}
	num, err := strconv.Atoi(s[2:4])
	if err != nil || num < 1 || num > 99 {
		return StormID{}, fmt.Errorf("%w: atcf id %q: bad cyclone number", ErrParse, s)
	}
	year, err := strconv.Atoi(s[4:8])
	if err != nil || year < 1800 {
		return StormID{}, fmt.Errorf("%w: atcf id %q: bad year", ErrParse, s)
	}
	return StormID{Basin: basin, Number: num, Year: year}, nil
}

// String returns the concatenated ATCF ID, e.g. "WP012025".
func (id StormID) String() string {
	return fmt.Sprintf("%s%02d%04d", id.Basin, id.Number, id.Year)
}

// IsZero reports whether the identifier is unset.
func (id StormID) IsZero() bool {
	return id == StormID{}
}

// IsInvest reports whether the cyclone number marks a provisional system.
func (id StormID) IsInvest(threshold int) bool {
	return id.Number >= threshold
}

func isBasinCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
