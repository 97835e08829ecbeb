// Package arbiter decides which launch monitor should become active for a
// reported player.
package arbiter

import (
	"log/slog"
	"strings"

	"github.com/fairwaylabs/gsproxy/internal/monitor"
)

// Engine evaluates routing rules against player attributes. It never
// mutates registry state; the caller applies the activation it returns.
type Engine struct {
	rules  RuleSet
	logger *slog.Logger
}

// NewEngine creates an engine. An empty rule list falls back to
// DefaultRules.
func NewEngine(rules RuleSet, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
		logger.Info("no routing rules configured, using defaults")
	}
	return &Engine{rules: rules, logger: logger}
}

// Rules returns the rule list in effect.
func (e *Engine) Rules() RuleSet { return e.rules }

// SelectForPlayer returns the monitor that should become active for the
// given player attributes, or nil when there is nothing to choose (empty
// info or no monitors).
//
// Rules are evaluated in configured order. The first complete rule whose
// attribute test passes and whose pattern is contained in some monitor's
// name wins, taking the earliest such monitor; a passing rule with no
// matching monitor does not stop later rules. When no rule produces a
// monitor, the first monitor in registration order is returned and a
// warning is logged.
func (e *Engine) SelectForPlayer(info map[string]any, monitors []*monitor.Monitor) *monitor.Monitor {
	if len(info) == 0 || len(monitors) == 0 {
		return nil
	}

	for _, rule := range e.rules {
		if !rule.complete() || !rule.matches(info) {
			continue
		}
		for _, m := range monitors {
			if strings.Contains(m.Name(), rule.MonitorPattern) {
				e.logger.Debug("routing rule matched",
					"attribute", rule.PlayerAttribute,
					"value", rule.AttributeValue,
					"pattern", rule.MonitorPattern,
					"monitor", m.Name(),
				)
				return m
			}
		}
	}

	fallback := monitors[0]
	e.logger.Warn("no routing rule matched player, using first monitor",
		"monitor", fallback.Name(),
	)
	return fallback
}
