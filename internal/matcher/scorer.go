// Package matcher scores records against pages and assigns each record at
// most one page with a greedy, first-found-wins pass.
package matcher

import (
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/normalize"
)

// ExactScore is the score of an exact candidate hit. Reaching it ends the
// page scan for a record.
const ExactScore = 100

// DefaultThreshold is the minimum similarity a fuzzy hit needs.
const DefaultThreshold = 90

// Strategy scores one record against one page.
type Strategy interface {
	Score(rec models.Record, page models.Page) (float64, string)
}

// IdentifierStrategy matches on the record identifier only.
type IdentifierStrategy struct {
	UseFuzzy  bool
	Threshold float64
}

// Score implements Strategy.
func (s IdentifierStrategy) Score(rec models.Record, page models.Page) (float64, string) {
	return Score(rec.Identifier, page.Identifiers, s.UseFuzzy, s.Threshold)
}

// NameStrategy matches every spelling variant of the record name against the
// page's name candidates. It serves documents that carry no identifiers.
type NameStrategy struct {
	UseFuzzy  bool
	Threshold float64
}

// Score implements Strategy.
func (s NameStrategy) Score(rec models.Record, page models.Page) (float64, string) {
	variants := normalize.NameVariants(rec.Name)
	if len(variants) == 0 || len(page.Names) == 0 {
		return 0, models.ReasonNoIdentifierData
	}

	var best float64
	reason := models.ReasonNoMatch
	for _, v := range variants {
		sc, r := score(v, page.Names, s.UseFuzzy, s.Threshold)
		if sc > best {
			best, reason = sc, r
		}
		if best == ExactScore {
			break
		}
	}
	return best, reason
}

// Score compares identifier with a page's candidate list. An exact member
// always scores 100 regardless of the fuzzy settings. With fuzzy matching
// enabled the best similarity at or above threshold is returned.
func Score(identifier string, candidates []string, useFuzzy bool, threshold float64) (float64, string) {
	return score(normalize.Identifier(identifier), candidates, useFuzzy, threshold)
}

// score expects id to be normalized already.
func score(id string, candidates []string, useFuzzy bool, threshold float64) (float64, string) {
	if id == "" || len(candidates) == 0 {
		return 0, models.ReasonNoIdentifierData
	}

	for _, c := range candidates {
		if c == id {
			return ExactScore, models.ReasonExact
		}
	}
	if !useFuzzy {
		return 0, models.ReasonNoMatch
	}

	var best float64
	for _, c := range candidates {
		if r := Similarity(id, c); r > best {
			best = r
		}
	}
	if best >= threshold && best > 0 {
		return best, FuzzyReason(best)
	}
	return 0, models.ReasonNoMatch
}

// Similarity returns the Levenshtein ratio of a and b on a 0-100 scale,
// rounded half up to an integer. It is symmetric and decreases as the edit
// distance grows. Thresholds compare against the rounded value, so a raw
// ratio of 89.5 passes a threshold of 90.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	// integer arithmetic keeps exact halves from drifting below .5
	return float64((200*(longest-d) + longest) / (2 * longest))
}

// FuzzyReason formats the reason code of a fuzzy hit.
func FuzzyReason(ratio float64) string {
	return fmt.Sprintf("fuzzy(%.0f%%)", ratio)
}
