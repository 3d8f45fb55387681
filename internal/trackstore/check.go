package trackstore

import (
	"fmt"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Violation is one broken track file invariant.
type Violation struct {
	Kind   string
	Detail string
}

func (v Violation) String() string {
	return v.Kind + ": " + v.Detail
}

// Violation kinds reported by Check.
const (
	KindDuplicate = "duplicate"
	KindOrder     = "order"
	KindCorrupt   = "corrupt"
)

// Check verifies the invariants of a loaded store: no two records of one
// technique within an hour, records sorted by DTG then technique and no
// undecodable lines.
func Check(s *Store) []Violation {
	var out []Violation

	if s.Corrupt > 0 {
		out = append(out, Violation{Kind: KindCorrupt, Detail: fmt.Sprintf("%d undecodable lines", s.Corrupt)})
	}

	for i, rec := range s.Records {
		if i > 0 {
			prev := s.Records[i-1]
			if prev.DTG > rec.DTG || (prev.DTG == rec.DTG && prev.Technique > rec.Technique) {
				out = append(out, Violation{
					Kind:   KindOrder,
					Detail: fmt.Sprintf("%s %s before %s %s", prev.DTG, prev.Technique, rec.DTG, rec.Technique),
				})
			}
		}
		for _, other := range s.Records[i+1:] {
			if other.Technique == rec.Technique && domain.SameProductTime(other.JulianDate, rec.JulianDate) {
				out = append(out, Violation{
					Kind:   KindDuplicate,
					Detail: fmt.Sprintf("%s at %s and %s", rec.Technique, rec.DTG, other.DTG),
				})
			}
		}
	}
	return out
}
