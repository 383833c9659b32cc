package seeder

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ListingProcessor cleans and parses the text scraped from product listings.
type ListingProcessor struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	firstInteger    *regexp.Regexp
	chainSeparators *regexp.Regexp
	keywordSplit    *regexp.Regexp
}

func NewListingProcessor() *ListingProcessor {
	return &ListingProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		firstInteger:    regexp.MustCompile(`\d[\d,]*`),
		chainSeparators: regexp.MustCompile(`\s*(?:>|»|›|/)\s*`),
		keywordSplit:    regexp.MustCompile(`[,;|#\n]+`),
	}
}

// CleanText strips markup and collapses whitespace.
func (lp *ListingProcessor) CleanText(text string) string {
	text = lp.htmlTags.ReplaceAllString(text, " ")
	text = lp.multiWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ParsePrice reads a localized price such as "₹1,250.00", "Rs. 499",
// "1.250,50 €" or "₹1,25,000". The separator appearing last is the decimal
// separator when it is followed by at most two digits.
func (lp *ListingProcessor) ParsePrice(text string) (float64, error) {
	first := strings.IndexFunc(text, unicode.IsDigit)
	last := strings.LastIndexFunc(text, unicode.IsDigit)
	if first < 0 {
		return 0, fmt.Errorf("no digits in price %q", text)
	}

	var digits strings.Builder
	for _, r := range text[first : last+1] {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			digits.WriteRune(r)
		}
	}
	raw := digits.String()

	decimalSep := rune(0)
	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimalSep = ','
		} else {
			decimalSep = '.'
		}
	case lastDot >= 0:
		if strings.Count(raw, ".") == 1 && len(raw)-lastDot-1 <= 2 {
			decimalSep = '.'
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") == 1 && len(raw)-lastComma-1 <= 2 {
			decimalSep = ','
		}
	}

	var normalized strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			normalized.WriteRune(r)
		case r == decimalSep:
			normalized.WriteRune('.')
		}
	}

	price, err := strconv.ParseFloat(normalized.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", text, err)
	}
	return price, nil
}

var outOfStockMarkers = []string{"out of stock", "sold out", "unavailable", "no stock"}

// ParseStock returns the first quantity in text. Out-of-stock wording maps to
// zero. ok is false when text says nothing usable.
func (lp *ListingProcessor) ParseStock(text string) (quantity int, ok bool) {
	lower := strings.ToLower(lp.CleanText(text))
	if lower == "" {
		return 0, false
	}
	for _, marker := range outOfStockMarkers {
		if strings.Contains(lower, marker) {
			return 0, true
		}
	}

	match := lp.firstInteger.FindString(lower)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// SplitCategoryChain turns "Books > Fiction > Classics" into a root-first
// chain of names.
func (lp *ListingProcessor) SplitCategoryChain(text string) []string {
	var chain []string
	for _, part := range lp.chainSeparators.Split(lp.CleanText(text), -1) {
		if part = strings.TrimSpace(part); part != "" {
			chain = append(chain, part)
		}
	}
	return chain
}

// ExtractKeywords splits tag lists on commas, semicolons, pipes and hashes,
// lower-cases them and removes duplicates.
func (lp *ListingProcessor) ExtractKeywords(texts ...string) []string {
	var keywords []string
	for _, text := range texts {
		for _, part := range lp.keywordSplit.Split(text, -1) {
			keyword := strings.ToLower(lp.CleanText(part))
			if len(keyword) > 1 && len(keyword) < 64 {
				keywords = append(keywords, keyword)
			}
		}
	}
	return lp.removeDuplicates(keywords)
}

// GenerateSKU derives a stable SKU for listings that do not show one.
func (lp *ListingProcessor) GenerateSKU(name, language string) string {
	key := strings.ToLower(lp.CleanText(name)) + "|" + language
	hash := md5.Sum([]byte(key))
	return "IMP-" + strings.ToUpper(hex.EncodeToString(hash[:])[:10])
}

func (lp *ListingProcessor) removeDuplicates(items []string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
