// Package catalog defines the research objective and reward vocabulary:
// which task types exist, which parameters each type accepts, and how a
// task is turned into localized display text.
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"fieldmap/internal/i18n"
	"fieldmap/internal/model"
)

// ParamKind identifies one parameter slot of a task type.
type ParamKind string

// Supported parameter kinds.
const (
	ParamQuantity ParamKind = "quantity" // number >= 1
	ParamMinTier  ParamKind = "min_tier" // number 1..5
	ParamSpecies  ParamKind = "species"  // non-empty list of species names
	ParamType     ParamKind = "type"     // non-empty list of creature types
)

// Class groups reward types that share special rendering behavior.
type Class string

// Reward classes. ClassEncounter marks rewards eligible for the
// species-icon override.
const (
	ClassItem      Class = "item"
	ClassEncounter Class = "encounter"
)

// Entry describes one task type: its parameter shape in display order.
type Entry struct {
	Params []ParamKind
	Class  Class
}

// TaskKind distinguishes the objective vocabulary from the reward one.
type TaskKind string

// Task kinds; the values double as i18n key prefixes.
const (
	KindObjective TaskKind = "objective"
	KindReward    TaskKind = "reward"
)

var objectives = map[string]Entry{
	"unknown":       {},
	"catch":         {Params: []ParamKind{ParamQuantity}},
	"catch_type":    {Params: []ParamKind{ParamQuantity, ParamType}},
	"catch_species": {Params: []ParamKind{ParamQuantity, ParamSpecies}},
	"throw":         {Params: []ParamKind{ParamQuantity}},
	"throw_curve":   {Params: []ParamKind{ParamQuantity}},
	"battle":        {Params: []ParamKind{ParamQuantity}},
	"win_raid":      {Params: []ParamKind{ParamQuantity}},
	"win_raid_tier": {Params: []ParamKind{ParamQuantity, ParamMinTier}},
	"hatch":         {Params: []ParamKind{ParamQuantity}},
	"spin":          {Params: []ParamKind{ParamQuantity}},
	"evolve":        {Params: []ParamKind{ParamQuantity}},
	"transfer":      {Params: []ParamKind{ParamQuantity}},
	"trade":         {Params: []ParamKind{ParamQuantity}},
	"buddy":         {Params: []ParamKind{ParamQuantity}},
	"power_up":      {Params: []ParamKind{ParamQuantity}},
	"send_gifts":    {Params: []ParamKind{ParamQuantity}},
	"rocket_grunt":  {},
	"rocket_leader": {},
}

var rewards = map[string]Entry{
	"unknown":      {Class: ClassItem},
	"encounter":    {Params: []ParamKind{ParamSpecies}, Class: ClassEncounter},
	"stardust":     {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"rare_candy":   {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"xp":           {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"potion":       {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"super_potion": {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"revive":       {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"max_revive":   {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"ball":         {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"great_ball":   {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"ultra_ball":   {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"berry":        {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"golden_berry": {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"fast_tm":      {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"charge_tm":    {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
	"sticker":      {Params: []ParamKind{ParamQuantity}, Class: ClassItem},
}

// Objectives returns the objective vocabulary.
func Objectives() map[string]Entry { return objectives }

// Rewards returns the reward vocabulary.
func Rewards() map[string]Entry { return rewards }

// Vocabulary returns the vocabulary for the given task kind.
func Vocabulary(kind TaskKind) map[string]Entry {
	if kind == KindReward {
		return rewards
	}
	return objectives
}

// ValidateObjective checks an objective task against the catalog.
func ValidateObjective(task model.Task) error {
	return validate(task, objectives, "objective")
}

// ValidateReward checks a reward task against the catalog.
func ValidateReward(task model.Task) error {
	return validate(task, rewards, "reward")
}

func validate(task model.Task, vocab map[string]Entry, what string) error {
	entry, ok := vocab[task.Type]
	if !ok {
		return fmt.Errorf("unknown %s type %q", what, task.Type)
	}
	for _, p := range entry.Params {
		v, ok := task.Params[string(p)]
		if !ok {
			return fmt.Errorf("%s %q: missing parameter %q", what, task.Type, p)
		}
		switch p {
		case ParamQuantity:
			n, ok := numberValue(v)
			if !ok || n < 1 {
				return fmt.Errorf("%s %q: parameter %q must be a number >= 1", what, task.Type, p)
			}
		case ParamMinTier:
			n, ok := numberValue(v)
			if !ok || n < 1 || n > 5 {
				return fmt.Errorf("%s %q: parameter %q must be a tier 1-5", what, task.Type, p)
			}
		case ParamSpecies, ParamType:
			list, ok := listValue(v)
			if !ok || len(list) == 0 {
				return fmt.Errorf("%s %q: parameter %q must be a non-empty string list", what, task.Type, p)
			}
		}
	}
	return nil
}

// IsEncounter reports whether a reward task is encounter-class.
func IsEncounter(task model.Task) bool {
	entry, ok := rewards[task.Type]
	return ok && entry.Class == ClassEncounter
}

// DisplayText renders a task as localized human-readable text. The plural
// form is used when the quantity parameter is present and greater than one.
// Unknown types render as the raw type string so display never fails.
func DisplayText(kind TaskKind, task model.Task, lang string, bundle *i18n.Bundle) string {
	entry, ok := Vocabulary(kind)[task.Type]
	if !ok {
		return task.Type
	}

	form := "singular"
	if n, ok := numberValue(task.Param(string(ParamQuantity))); ok && n > 1 {
		form = "plural"
	}

	key := fmt.Sprintf("%s.%s.%s", kind, task.Type, form)
	if !bundle.Has(lang, key) {
		return task.Type
	}

	args := make([]string, 0, len(entry.Params))
	for _, p := range entry.Params {
		args = append(args, FormatParam(p, task.Param(string(p)), lang, bundle))
	}
	return bundle.Resolve(lang, key, args...)
}

// FormatParam formats a single task parameter value for display.
func FormatParam(kind ParamKind, value any, lang string, bundle *i18n.Bundle) string {
	switch kind {
	case ParamQuantity, ParamMinTier:
		if n, ok := numberValue(value); ok {
			return strconv.Itoa(n)
		}
		return ""
	case ParamSpecies, ParamType:
		list, _ := listValue(value)
		return strings.Join(list, bundle.Resolve(lang, "list.separator"))
	}
	return fmt.Sprintf("%v", value)
}

// numberValue normalizes the numeric shapes JSON decoding can produce.
func numberValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// listValue normalizes string-list shapes: a decoded JSON array or a
// native string slice.
func listValue(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// ListParam returns the named parameter as a string list, or nil.
func ListParam(task model.Task, key string) []string {
	list, _ := listValue(task.Param(key))
	return list
}

// NumberParam returns the named parameter as an int; ok is false when the
// parameter is absent or not numeric.
func NumberParam(task model.Task, key string) (int, bool) {
	return numberValue(task.Param(key))
}
