package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTermLength is the shortest term that filters the menu.
const MinTermLength = 2

// Threshold is the score an item must exceed to appear in results.
const Threshold = 15

const (
	scoreTitle         = 100
	scoreDescription   = 40
	scoreSynonymWord   = 60
	scoreSynonymInName = 30
)

// SynonymGroup maps a canonical word to the spellings customers use for it.
type SynonymGroup struct {
	Word     string
	Synonyms []string
}

// DefaultSynonyms is ordered so scoring is deterministic.
var DefaultSynonyms = []SynonymGroup{
	{"pizza", []string{"piza", "pizzas"}},
	{"hamburguer", []string{"hamburger", "x-burger", "lanche", "sanduiche"}},
	{"refrigerante", []string{"refri", "coca", "pepsi", "soda", "bebida"}},
	{"suco", []string{"juice", "vitamina", "natural"}},
	{"batata", []string{"fritas", "chips"}},
	{"frango", []string{"chicken", "galeto", "nuggets"}},
	{"queijo", []string{"cheese", "mussarela", "catupiry"}},
	{"salada", []string{"verdura", "legumes"}},
	{"sobremesa", []string{"doce", "sorvete", "acai", "milkshake"}},
	{"cerveja", []string{"beer", "chopp", "heineken", "budweiser", "corona"}},
}

var combining = runes.Predicate(func(r rune) bool { return r >= 0x300 && r <= 0x36f })

// Normalize decomposes s, drops combining accents, lower-cases and trims.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(combining))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Score rates how well item matches the normalized term.
func Score(item Item, term string, groups []SynonymGroup) int {
	title := Normalize(item.Name)
	desc := Normalize(item.Description)
	score := 0
	if strings.Contains(title, term) {
		score += scoreTitle
	}
	if strings.Contains(desc, term) {
		score += scoreDescription
	}
	for _, g := range groups {
		if !mentions(term, g) {
			continue
		}
		if strings.Contains(title, g.Word) {
			score += scoreSynonymWord
		}
		for _, s := range g.Synonyms {
			if strings.Contains(title, s) {
				score += scoreSynonymInName
			}
		}
	}
	return score
}

func mentions(term string, g SynonymGroup) bool {
	if strings.Contains(term, g.Word) {
		return true
	}
	for _, s := range g.Synonyms {
		if strings.Contains(term, s) {
			return true
		}
	}
	return false
}

// Hit is a ranked search result.
type Hit struct {
	Item
	Score int `json:"score"`
}

// Rank filters and orders items for term. Short terms return every item in
// menu order with a zero score.
func Rank(items []Item, term string, groups []SynonymGroup) []Hit {
	if utf8.RuneCountInString(term) < MinTermLength {
		hits := make([]Hit, len(items))
		for i, it := range items {
			hits[i] = Hit{Item: it}
		}
		return hits
	}
	normalized := Normalize(term)
	hits := make([]Hit, 0, len(items))
	for _, it := range items {
		hits = append(hits, Hit{Item: it, Score: Score(it, normalized, groups)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	out := hits[:0]
	for _, h := range hits {
		if h.Score > Threshold {
			out = append(out, h)
		}
	}
	return out
}
