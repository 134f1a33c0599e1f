package matcher

import (
	"sort"
	"strconv"

	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/normalize"
)

// Engine runs the identifier assignment with fixed fuzzy settings.
type Engine struct {
	UseFuzzy  bool
	Threshold float64
}

// Assign matches records to pages with an IdentifierStrategy.
func (e Engine) Assign(records []models.Record, pages []models.Page) models.Assignment {
	return Assign(records, pages, IdentifierStrategy{UseFuzzy: e.UseFuzzy, Threshold: e.Threshold})
}

// Assign walks records in order and gives each the best scoring page not yet
// taken, scanning pages in index order and stopping at the first exact hit.
// When several pages would match a record exactly, the lowest index wins.
// Records with an empty normalized identifier consult no page.
//
// Assign never fails: every record gets a MatchDetail, unmatched ones with a
// zero score and a reason code.
func Assign(records []models.Record, pages []models.Page, strategy Strategy) models.Assignment {
	if strategy == nil {
		strategy = IdentifierStrategy{Threshold: DefaultThreshold}
	}
	_, byName := strategy.(NameStrategy)

	result := models.Assignment{
		Pages:   make(map[int]int),
		Details: make([]models.MatchDetail, len(records)),
	}
	used := make(map[int]bool, len(pages))

	for i, rec := range records {
		if !byName && normalize.Identifier(rec.Identifier) == "" {
			result.Details[i] = models.MatchDetail{Page: models.Unmatched, Reason: models.ReasonEmptyIdentifier}
			continue
		}

		bestPage := models.Unmatched
		var bestScore float64
		bestReason := models.ReasonNoMatch

		for _, page := range pages {
			if used[page.Index] {
				continue
			}
			score, reason := strategy.Score(rec, page)
			if score > bestScore {
				bestPage, bestScore, bestReason = page.Index, score, reason
				if score >= ExactScore {
					break
				}
			}
		}

		if bestScore > 0 {
			used[bestPage] = true
			result.Pages[i] = bestPage
			result.Details[i] = models.MatchDetail{Page: bestPage, Score: bestScore, Reason: bestReason}
			continue
		}
		result.Details[i] = models.MatchDetail{Page: models.Unmatched, Reason: models.ReasonNoMatch}
	}

	for _, page := range pages {
		if !used[page.Index] {
			result.Leftover = append(result.Leftover, page.Index)
		}
	}
	sort.Ints(result.Leftover)
	if result.Leftover == nil {
		result.Leftover = []int{}
	}
	return result
}

// FinalOrder lists matched pages in record order followed by the leftover pages.
func FinalOrder(a models.Assignment, records int) []int {
	order := make([]int, 0, len(a.Pages)+len(a.Leftover))
	for i := 0; i < records; i++ {
		if p, ok := a.Pages[i]; ok {
			order = append(order, p)
		}
	}
	return append(order, a.Leftover...)
}

// Labels returns the display label of each labeled output position, keyed by
// zero-based position in FinalOrder. Records sharing a normalized identifier
// share a label; labels count from 1 in first-encountered order. Leftover
// positions carry no label.
func Labels(records []models.Record, a models.Assignment) map[int]string {
	labels := make(map[int]string)
	numbers := make(map[string]int)

	pos := 0
	for i, rec := range records {
		if _, ok := a.Pages[i]; !ok {
			continue
		}
		key := normalize.Identifier(rec.Identifier)
		n, ok := numbers[key]
		if !ok {
			n = len(numbers) + 1
			numbers[key] = n
		}
		labels[pos] = strconv.Itoa(n)
		pos++
	}
	return labels
}
