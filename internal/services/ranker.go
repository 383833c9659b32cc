package services

import (
	"sort"
	"strings"

	"github.com/sankirtan-pos/backend/internal/models"
)

// Field weights. Fixed so equal inputs always produce equal scores.
const (
	WeightNameExact        = 100.0
	WeightKeywordExact     = 60.0
	WeightNameSubstring    = 40.0
	WeightKeywordSubstring = 25.0
	WeightAttributeValue   = 10.0
)

// RankResult is a page of ordered hits plus the pre-pagination count.
type RankResult struct {
	Hits  []models.RankedHit
	Total int
}

// Ranker scores catalog entries against a normalized request, filters and
// orders them. It holds no state and is safe for concurrent use.
type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

type scored struct {
	entry  *models.CatalogEntry
	name   string
	score  float64
	fields []string
	clicks int
	price  float64
}

// Rank runs candidate generation, text matching, filtering, ordering and
// pagination. popularity maps entry id to its rolling click count and is only
// consulted for the popularity sort.
func (r *Ranker) Rank(req *models.SearchRequest, entries []models.CatalogEntry, popularity map[string]int) RankResult {
	matches := make([]scored, 0, len(entries))

	for i := range entries {
		entry := &entries[i]
		if !r.isCandidate(req, entry) {
			continue
		}

		s := scored{
			entry: entry,
			name:  NormalizeText(entry.Name),
			price: entry.EffectivePrice(),
		}
		if req.NormalizedText != "" {
			s.score, s.fields = scoreText(req.NormalizedText, s.name, entry)
			if s.score == 0 {
				continue
			}
		}
		if !passesFilters(req.Filters, entry, s.price) {
			continue
		}
		s.clicks = popularity[entry.ID]
		matches = append(matches, s)
	}

	sort.SliceStable(matches, less(req.SortBy, matches))

	total := len(matches)
	start := req.Offset
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}

	hits := make([]models.RankedHit, 0, end-start)
	for _, m := range matches[start:end] {
		fields := m.fields
		if fields == nil {
			fields = []string{}
		}
		hits = append(hits, models.RankedHit{
			EntryID:       m.entry.ID,
			Score:         m.score,
			MatchedFields: fields,
			Entry:         m.entry,
		})
	}

	return RankResult{Hits: hits, Total: total}
}

func (r *Ranker) isCandidate(req *models.SearchRequest, entry *models.CatalogEntry) bool {
	if !entry.Active {
		return false
	}
	if !entry.LanguageAgnostic() && entry.Language != req.Language {
		return false
	}
	if req.CategoryID != nil && !entry.InCategory(*req.CategoryID) {
		return false
	}
	if len(req.Filters.Categories) > 0 {
		found := false
		for _, c := range req.Filters.Categories {
			if entry.InCategory(c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// scoreText sums field weights. Within one field only the strongest match
// counts: exact beats substring.
func scoreText(query, name string, entry *models.CatalogEntry) (float64, []string) {
	var score float64
	var fields []string

	switch {
	case name == query:
		score += WeightNameExact
		fields = append(fields, models.FieldNameExact)
	case strings.Contains(name, query):
		score += WeightNameSubstring
		fields = append(fields, models.FieldName)
	}

	keywordExact, keywordSub := false, false
	for _, kw := range entry.Keywords {
		kw = NormalizeText(kw)
		if kw == "" {
			continue
		}
		if kw == query {
			keywordExact = true
			break
		}
		if strings.Contains(kw, query) {
			keywordSub = true
		}
	}
	switch {
	case keywordExact:
		score += WeightKeywordExact
		fields = append(fields, models.FieldKeywordExact)
	case keywordSub:
		score += WeightKeywordSubstring
		fields = append(fields, models.FieldKeywords)
	}

	for _, v := range entry.Attributes {
		if strings.Contains(NormalizeText(v), query) {
			score += WeightAttributeValue
			fields = append(fields, models.FieldAttributes)
			break
		}
	}

	return score, fields
}

func passesFilters(f models.Filters, entry *models.CatalogEntry, price float64) bool {
	if f.PriceMin != nil && price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && price > *f.PriceMax {
		return false
	}
	if f.InStock && entry.Stock <= 0 {
		return false
	}
	if len(f.Attributes) == 0 {
		return true
	}

	normalized := make(map[string]string, len(entry.Attributes))
	for k, v := range entry.Attributes {
		normalized[NormalizeText(k)] = NormalizeText(v)
	}
	for key, accepted := range f.Attributes {
		value, ok := normalized[key]
		if !ok || !contains(accepted, value) {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func less(sortBy string, m []scored) func(i, j int) bool {
	byName := func(i, j int) bool {
		if m[i].name != m[j].name {
			return m[i].name < m[j].name
		}
		return m[i].entry.ID < m[j].entry.ID
	}
	byScore := func(i, j int) bool {
		if m[i].score != m[j].score {
			return m[i].score > m[j].score
		}
		return byName(i, j)
	}

	switch sortBy {
	case models.SortPriceAsc:
		return func(i, j int) bool {
			if m[i].price != m[j].price {
				return m[i].price < m[j].price
			}
			return byScore(i, j)
		}
	case models.SortPriceDesc:
		return func(i, j int) bool {
			if m[i].price != m[j].price {
				return m[i].price > m[j].price
			}
			return byScore(i, j)
		}
	case models.SortName:
		return byName
	case models.SortPopularity:
		return func(i, j int) bool {
			if m[i].clicks != m[j].clicks {
				return m[i].clicks > m[j].clicks
			}
			return byScore(i, j)
		}
	default:
		return byScore
	}
}
