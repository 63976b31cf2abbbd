package home

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed blueprints/*.yaml
var blueprintFS embed.FS

// DefaultBlueprintID names the built-in fallback blueprint.
const DefaultBlueprintID = "single_family"

type BlueprintTask struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	PhaseKey    PhaseKey `json:"phaseKey" yaml:"phaseKey"`
}

type BlueprintCheck struct {
	Title    string   `json:"title" yaml:"title"`
	Notes    string   `json:"notes,omitempty" yaml:"notes"`
	PhaseKey PhaseKey `json:"phaseKey" yaml:"phaseKey"`
}

type BlueprintTrade struct {
	Name          string           `json:"name" yaml:"name"`
	PhaseKeys     []PhaseKey       `json:"phaseKeys" yaml:"phaseKeys"`
	Tasks         []BlueprintTask  `json:"tasks" yaml:"tasks"`
	QualityChecks []BlueprintCheck `json:"qualityChecks" yaml:"qualityChecks"`
}

// Blueprint is a reusable trade layout copied into new homes.
type Blueprint struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Trades      []BlueprintTrade `json:"trades" yaml:"trades"`
}

var (
	builtinOnce sync.Once
	builtins    map[string]Blueprint
	builtinErr  error
)

func loadBuiltins() {
	builtins = map[string]Blueprint{}
	entries, err := blueprintFS.ReadDir("blueprints")
	if err != nil {
		builtinErr = fmt.Errorf("read blueprints: %w", err)
		return
	}
	for _, entry := range entries {
		raw, err := blueprintFS.ReadFile(path.Join("blueprints", entry.Name()))
		if err != nil {
			builtinErr = fmt.Errorf("read blueprint %s: %w", entry.Name(), err)
			return
		}
		var bp Blueprint
		if err := yaml.Unmarshal(raw, &bp); err != nil {
			builtinErr = fmt.Errorf("parse blueprint %s: %w", entry.Name(), err)
			return
		}
		if bp.ID == "" {
			bp.ID = strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		}
		builtins[bp.ID] = bp
	}
}

// BuiltinBlueprint returns an embedded blueprint by id.
func BuiltinBlueprint(id string) (Blueprint, bool) {
	builtinOnce.Do(loadBuiltins)
	if builtinErr != nil {
		return Blueprint{}, false
	}
	bp, ok := builtins[id]
	return bp, ok
}

func BuiltinBlueprints() []Blueprint {
	builtinOnce.Do(loadBuiltins)
	out := make([]Blueprint, 0, len(builtins))
	for _, bp := range builtins {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BuildTrades deep-copies blueprint trades with fresh ids. Tasks start as
// todo, checks unaccepted, prices at zero.
func BuildTrades(trades []BlueprintTrade) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, bt := range trades {
		phaseKeys := append([]PhaseKey{}, bt.PhaseKeys...)
		trade := NewTrade(bt.Name, phaseKeys, Vendor{}, decimal.Zero, "")
		for _, task := range bt.Tasks {
			phase := task.PhaseKey
			if phase == "" && len(phaseKeys) > 0 {
				phase = phaseKeys[0]
			}
			trade.Tasks = append(trade.Tasks, NewTask(task.Title, task.Description, phase, nil, "", nil))
		}
		for _, bc := range bt.QualityChecks {
			trade.QualityChecks = append(trade.QualityChecks, NewQualityCheck(bc.PhaseKey, bc.Title, bc.Notes))
		}
		out = append(out, trade)
	}
	return out
}

// Validate checks that every phase key used by the blueprint exists.
func (b Blueprint) Validate() error {
	for _, trade := range b.Trades {
		if strings.TrimSpace(trade.Name) == "" {
			return fmt.Errorf("trade name is required")
		}
		if len(trade.PhaseKeys) == 0 {
			return fmt.Errorf("trade %q needs at least one phase", trade.Name)
		}
		for _, key := range trade.PhaseKeys {
			if !ValidPhase(key) {
				return fmt.Errorf("trade %q: unknown phase %q", trade.Name, key)
			}
		}
		for _, task := range trade.Tasks {
			if task.PhaseKey != "" && !ValidPhase(task.PhaseKey) {
				return fmt.Errorf("task %q: unknown phase %q", task.Title, task.PhaseKey)
			}
		}
		for _, check := range trade.QualityChecks {
			if check.PhaseKey != "" && !ValidPhase(check.PhaseKey) {
				return fmt.Errorf("check %q: unknown phase %q", check.Title, check.PhaseKey)
			}
		}
	}
	return nil
}
