// Package catalog serves the menu and ranks it for free-text search.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

//go:embed menu.json
var menuJSON []byte

// Item is one menu entry.
type Item struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
}

// LoadMenu decodes a menu document.
func LoadMenu(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("catalog: decode menu: %w", err)
	}
	return items, nil
}

// DefaultMenu returns the embedded menu.
func DefaultMenu() []Item {
	items, err := LoadMenu(menuJSON)
	if err != nil {
		panic(err)
	}
	return items
}

// Service answers menu queries.
type Service struct {
	items    []Item
	synonyms []SynonymGroup
	cache    *Cache
	logger   zerolog.Logger
}

// Config configures the Service.
type Config struct {
	Items    []Item
	Synonyms []SynonymGroup
	Cache    *Cache
	Logger   zerolog.Logger
}

// NewService builds a Service, falling back to the embedded menu.
func NewService(cfg Config) *Service {
	items := cfg.Items
	if items == nil {
		items = DefaultMenu()
	}
	synonyms := cfg.Synonyms
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}
	return &Service{items: items, synonyms: synonyms, cache: cfg.Cache, logger: cfg.Logger}
}

// Menu lists every item in menu order.
func (s *Service) Menu() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Find returns the item with id.
func (s *Service) Find(id string) (Item, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Search ranks the menu for term. Results for a normalized term are cached
// when a cache is configured; cache failures fall back to ranking.
func (s *Service) Search(ctx context.Context, term string) []Hit {
	if utf8.RuneCountInString(term) < MinTermLength {
		return Rank(s.items, term, s.synonyms)
	}
	key := searchCacheKey(Normalize(term))
	var hits []Hit
	if ok, err := s.cache.GetJSON(ctx, key, &hits); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache get failed")
	} else if ok {
		return hits
	}
	hits = Rank(s.items, term, s.synonyms)
	if err := s.cache.SetJSON(ctx, key, hits); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache set failed")
	}
	return hits
}

func searchCacheKey(normalized string) string {
	return "catalog:search:" + normalized
}

// DefaultCacheTTL bounds how long ranked results are reused.
const DefaultCacheTTL = 10 * time.Minute
