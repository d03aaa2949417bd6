package watchlist

import (
	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/marketcache"
)

// Config is a watchlist file: which symbols the scheduler keeps warm and
// which parts of their analysis to refresh.
// ⭐ SSOT: 관심종목 설정 구조는 여기서만
type Config struct {
	Meta    Meta    `yaml:"meta" json:"meta"`
	Symbols []Entry `yaml:"symbols" json:"symbols"`
}

// Meta 메타 정보
type Meta struct {
	Name     string `yaml:"name" json:"name"`
	Schedule string `yaml:"schedule" json:"schedule"` // cron with seconds field
}

// Entry is one watched symbol.
// A missing or null selection means all; [] means none.
type Entry struct {
	Symbol       string    `yaml:"symbol" json:"symbol"`
	Fundamentals *[]string `yaml:"fundamentals" json:"fundamentals"`
	Technicals   *[]string `yaml:"technicals" json:"technicals"`
}

// FromSymbols builds a watchlist that runs the full analysis for each symbol
func FromSymbols(name, schedule string, symbols []string) *Config {
	cfg := &Config{Meta: Meta{Name: name, Schedule: schedule}}
	for _, s := range symbols {
		cfg.Symbols = append(cfg.Symbols, Entry{Symbol: s})
	}
	return cfg
}

// Requests turns the entries into analysis requests
func (c *Config) Requests() []contracts.AnalysisRequest {
	reqs := make([]contracts.AnalysisRequest, 0, len(c.Symbols))
	for _, e := range c.Symbols {
		reqs = append(reqs, contracts.AnalysisRequest{
			Symbol:       marketcache.NormalizeSymbol(e.Symbol),
			Fundamentals: deref(e.Fundamentals),
			Technicals:   deref(e.Technicals),
		})
	}
	return reqs
}

func deref(s *[]string) []string {
	if s == nil {
		return nil
	}
	if *s == nil {
		return []string{}
	}
	return *s
}
