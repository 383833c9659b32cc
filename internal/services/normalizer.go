package services

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sankirtan-pos/backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// NormalizerConfig holds the closed sets and bounds the normalizer enforces.
type NormalizerConfig struct {
	DefaultLanguage string
	Languages       []string
	MaxQueryLength  int
}

// QueryNormalizer turns raw requests into canonical SearchRequests.
type QueryNormalizer struct {
	defaultLanguage string
	languages       map[string]bool
	maxQueryLength  int
	logger          *logrus.Logger
}

func NewQueryNormalizer(cfg NormalizerConfig, logger *logrus.Logger) *QueryNormalizer {
	langs := make(map[string]bool, len(cfg.Languages)+1)
	for _, l := range cfg.Languages {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			langs[l] = true
		}
	}
	def := strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	if def == "" {
		def = "en"
	}
	langs[def] = true

	return &QueryNormalizer{
		defaultLanguage: def,
		languages:       langs,
		maxQueryLength:  cfg.MaxQueryLength,
		logger:          logger,
	}
}

// NormalizeText is the aggregation and lookup key for a query: NFC, case
// folded, trimmed, inner whitespace collapsed.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = cases.Fold().String(text)
	return strings.Join(strings.Fields(text), " ")
}

// Normalize validates and canonicalizes a raw request. Malformed filter
// fragments are dropped with a warning; bad core fields fail the request.
func (n *QueryNormalizer) Normalize(raw models.RawSearchRequest) (*models.SearchRequest, error) {
	text := strings.TrimSpace(raw.Text)
	if n.maxQueryLength > 0 && utf8.RuneCountInString(text) > n.maxQueryLength {
		return nil, invalidQuery("text", "longer than %d characters", n.maxQueryLength)
	}

	lang, err := n.Language(raw.Language)
	if err != nil {
		return nil, err
	}

	sortBy := strings.ToLower(strings.TrimSpace(raw.SortBy))
	if sortBy == "" {
		sortBy = models.SortRelevance
	}
	if !models.IsValidSort(sortBy) {
		return nil, invalidQuery("sortBy", "unknown sort %q", raw.SortBy)
	}

	limit, err := ClampLimit(raw.Limit, DefaultLimit, MaxLimit)
	if err != nil {
		return nil, err
	}

	offset := 0
	if raw.Offset != nil {
		if *raw.Offset < 0 {
			return nil, invalidQuery("offset", "must not be negative")
		}
		offset = *raw.Offset
	}

	req := &models.SearchRequest{
		Text:           text,
		NormalizedText: NormalizeText(text),
		Language:       lang,
		SortBy:         sortBy,
		Limit:          limit,
		Offset:         offset,
		Filters:        n.parseFilters(raw.Filters),
		Track:          raw.Track,
	}

	if id := strings.TrimSpace(raw.CategoryID); id != "" {
		req.CategoryID = &id
	}
	if uid := strings.TrimSpace(raw.UserID); uid != "" {
		req.UserID = &uid
	}

	return req, nil
}

// Language resolves a client language tag ("EN", "hi-IN", "") against the
// closed set. Unknown languages are rejected, never defaulted.
func (n *QueryNormalizer) Language(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return n.defaultLanguage, nil
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", invalidQuery("language", "unparseable language %q", raw)
	}
	base, _ := tag.Base()
	code := base.String()
	if !n.languages[code] {
		return "", invalidQuery("language", "unsupported language %q", raw)
	}
	return code, nil
}

// ClampLimit applies the default when unset, fails on negative values and
// clamps everything else into [1, max].
func ClampLimit(raw *int, def, max int) (int, error) {
	if raw == nil {
		return def, nil
	}
	if *raw < 0 {
		return 0, invalidQuery("limit", "must not be negative")
	}
	switch {
	case *raw < 1:
		return 1, nil
	case *raw > max:
		return max, nil
	}
	return *raw, nil
}

func (n *QueryNormalizer) dropFilter(fragment, reason string) {
	n.logger.WithFields(logrus.Fields{
		"filter": fragment,
		"reason": reason,
	}).Warn("Dropping malformed search filter")
}

// parseFilters treats the payload as untrusted. It accepts an object or a
// JSON string that encodes one.
func (n *QueryNormalizer) parseFilters(raw json.RawMessage) models.Filters {
	var filters models.Filters

	fields, ok := n.decodeObject("filters", raw)
	if !ok {
		return filters
	}

	for key, value := range fields {
		if isNull(value) {
			continue
		}
		switch key {
		case "priceMin":
			filters.PriceMin = n.parsePrice(key, value)
		case "priceMax":
			filters.PriceMax = n.parsePrice(key, value)
		case "inStock":
			if b, ok := parseBool(value); ok {
				filters.InStock = b
			} else {
				n.dropFilter(key, "not a boolean")
			}
		case "categories":
			if cats, ok := parseStringSet(value); ok {
				filters.Categories = cats
			} else {
				n.dropFilter(key, "not a list of category ids")
			}
		case "attributes":
			filters.Attributes = n.parseAttributes(value)
		default:
			n.dropFilter(key, "unknown filter")
		}
	}

	if filters.PriceMin != nil && filters.PriceMax != nil && *filters.PriceMin > *filters.PriceMax {
		n.dropFilter("priceMin/priceMax", "priceMin exceeds priceMax")
		filters.PriceMin, filters.PriceMax = nil, nil
	}

	return filters
}

func (n *QueryNormalizer) decodeObject(fragment string, raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)

	// Serialized payload: a string holding the JSON object.
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			n.dropFilter(fragment, "invalid encoded payload")
			return nil, false
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			return nil, false
		}
		raw = json.RawMessage(encoded)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		n.dropFilter(fragment, "not a JSON object")
		return nil, false
	}
	return fields, true
}

func (n *QueryNormalizer) parsePrice(key string, raw json.RawMessage) *float64 {
	var v float64
	var s string
	switch {
	case json.Unmarshal(raw, &v) == nil:
	case json.Unmarshal(raw, &s) == nil:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			n.dropFilter(key, "not a number")
			return nil
		}
		v = parsed
	default:
		n.dropFilter(key, "not a number")
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		n.dropFilter(key, "must be a non-negative number")
		return nil
	}
	return &v
}

func (n *QueryNormalizer) parseAttributes(raw json.RawMessage) map[string][]string {
	fields, ok := n.decodeObject("attributes", raw)
	if !ok {
		return nil
	}

	attrs := make(map[string][]string, len(fields))
	for name, value := range fields {
		key := NormalizeText(name)
		if key == "" {
			n.dropFilter("attributes", "empty attribute name")
			continue
		}
		values, ok := parseStringSet(value)
		if !ok || len(values) == 0 {
			n.dropFilter("attributes."+name, "accepted values must be a string or list of strings")
			continue
		}
		for i := range values {
			values[i] = NormalizeText(values[i])
		}
		attrs[key] = dedupe(values)
	}

	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func parseBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed, true
		}
	}
	return false, false
}

// parseStringSet accepts ["a","b"], [1,2], "a" or "a,b".
func parseStringSet(raw json.RawMessage) ([]string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return dedupe(strings.Split(s, ",")), true
	}

	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			return nil, false
		}
	}
	return dedupe(out), true
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
