package providers

import (
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/solw/internal/errors"
	"github.com/ggonzalez94/solw/internal/model"
	"github.com/ggonzalez94/solw/internal/swap"
)

type Provider interface {
	Info() model.ProviderInfo
}

// QuoteProvider prices swaps and builds their transactions.
type QuoteProvider interface {
	Provider
	swap.QuoteService
}

// Set holds the configured quote providers by name.
type Set struct {
	byName   map[string]QuoteProvider
	fallback string
}

// NewSet registers providers; the first one is the default.
func NewSet(items ...QuoteProvider) *Set {
	s := &Set{byName: make(map[string]QuoteProvider, len(items))}
	for _, p := range items {
		name := strings.ToLower(p.Info().Name)
		if s.fallback == "" {
			s.fallback = name
		}
		s.byName[name] = p
	}
	return s
}

// Select returns the named provider, or the default for an empty name.
func (s *Set) Select(name string) (QuoteProvider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = s.fallback
	}
	p, ok := s.byName[name]
	if !ok {
		return nil, clierr.New(clierr.CodeUnsupported, "unsupported swap provider: "+name)
	}
	return p, nil
}

// Infos lists provider metadata sorted by name.
func (s *Set) Infos() []model.ProviderInfo {
	out := make([]model.ProviderInfo, 0, len(s.byName))
	for _, p := range s.byName {
		out = append(out, p.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
