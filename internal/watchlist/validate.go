package watchlist

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/wonny/equitylens/internal/brain"
	"github.com/wonny/equitylens/internal/fundamental"
	"github.com/wonny/equitylens/internal/marketcache"
)

// ValidationError 검증 실패 (로드 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// scheduleParser accepts the same six field expressions as the scheduler
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks the constraints that would make a refresh fail
func Validate(cfg *Config) error {
	if cfg.Meta.Schedule != "" {
		if _, err := scheduleParser.Parse(cfg.Meta.Schedule); err != nil {
			return ValidationError{"meta.schedule", err.Error()}
		}
	}

	if len(cfg.Symbols) == 0 {
		return ValidationError{"symbols", "at least one symbol is required"}
	}

	seen := make(map[string]bool, len(cfg.Symbols))
	for i, e := range cfg.Symbols {
		field := fmt.Sprintf("symbols[%d]", i)

		symbol := marketcache.NormalizeSymbol(e.Symbol)
		if symbol == "" {
			return ValidationError{field + ".symbol", "required"}
		}
		if seen[symbol] {
			return ValidationError{field + ".symbol", fmt.Sprintf("duplicate symbol %s", symbol)}
		}
		seen[symbol] = true

		if e.Technicals != nil {
			for _, key := range *e.Technicals {
				if !brain.KnownIndicator(key) {
					return ValidationError{field + ".technicals", fmt.Sprintf("unsupported indicator %q", key)}
				}
			}
		}
	}

	return nil
}

// Warn reports entries that load but will not do what they probably mean
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Meta.Schedule == "" {
		warnings = append(warnings, Warning{
			Code:    "SCHEDULE_DEFAULT",
			Message: "meta.schedule is empty, WATCHLIST_SCHEDULE is used",
		})
	}

	for _, e := range cfg.Symbols {
		symbol := marketcache.NormalizeSymbol(e.Symbol)

		if e.Fundamentals != nil {
			for _, name := range *e.Fundamentals {
				if _, ok := fundamental.Spec(name); !ok {
					warnings = append(warnings, Warning{
						Code:    "UNKNOWN_METRIC",
						Message: fmt.Sprintf("%s: fundamental metric %q is ignored", symbol, name),
					})
				}
			}
		}

		if e.Fundamentals != nil && len(*e.Fundamentals) == 0 && e.Technicals != nil && len(*e.Technicals) == 0 {
			warnings = append(warnings, Warning{
				Code:    "EMPTY_SELECTION",
				Message: fmt.Sprintf("%s: both selections are empty, nothing is refreshed", symbol),
			})
		}
	}

	return warnings
}
