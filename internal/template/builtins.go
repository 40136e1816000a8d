package template

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"fieldmap/internal/catalog"
	"fieldmap/internal/icons"
	"fieldmap/internal/model"
)

func registerBuiltins(r *Renderer) {
	r.Register("COORDS", biCoords)
	r.Register("FALLBACK", biFallback)
	r.Register("IF_EMPTY", biIfEmpty)
	r.Register("IF_NOT_EMPTY", biIfNotEmpty)
	r.Register("IF_EQUAL", compareBuiltin(func(c int) bool { return c == 0 }))
	r.Register("IF_NOT_EQUAL", compareBuiltin(func(c int) bool { return c != 0 }))
	r.Register("IF_LESS_THAN", compareBuiltin(func(c int) bool { return c < 0 }))
	r.Register("IF_LESS_OR_EQUAL", compareBuiltin(func(c int) bool { return c <= 0 }))
	r.Register("IF_GREATER_THAN", compareBuiltin(func(c int) bool { return c > 0 }))
	r.Register("IF_GREATER_OR_EQUAL", compareBuiltin(func(c int) bool { return c >= 0 }))
	r.Register("I18N", biI18N)
	r.Register("LAT", biLat)
	r.Register("LNG", biLng)
	r.Register("LENGTH", biLength)
	r.Register("LOWERCASE", biLowercase)
	r.Register("UPPERCASE", biUppercase)
	r.Register("NAVURL", biNavURL)
	r.Register("OBJECTIVE", biObjective)
	r.Register("REWARD", biReward)
	r.Register("OBJECTIVE_ICON", taskIconBuiltin(func(ctx *Context) model.Task { return ctx.Objective }, false))
	r.Register("REWARD_ICON", taskIconBuiltin(func(ctx *Context) model.Task { return ctx.Reward }, true))
	r.Register("OBJECTIVE_PARAMETER", taskParamBuiltin(func(ctx *Context) model.Task { return ctx.Objective }))
	r.Register("REWARD_PARAMETER", taskParamBuiltin(func(ctx *Context) model.Task { return ctx.Reward }))
	r.Register("OBJECTIVE_PARAMETER_COUNT", taskParamCountBuiltin(func(ctx *Context) model.Task { return ctx.Objective }))
	r.Register("REWARD_PARAMETER_COUNT", taskParamCountBuiltin(func(ctx *Context) model.Task { return ctx.Reward }))
	r.Register("PAD_LEFT", padBuiltin(true))
	r.Register("PAD_RIGHT", padBuiltin(false))
	r.Register("POI", biPOI)
	r.Register("REPORTER", biReporter)
	r.Register("SITEURL", biSiteURL)
	r.Register("SUBSTRING", biSubstring)
	r.Register("TIME", biTime)
}

// arg returns args[i] or "" when the argument is absent.
func arg(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}

func biCoords(ctx *Context, args []string) string {
	prec := 5
	if len(args) > 0 && args[0] != "" {
		n, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil || n < 0 || n > 10 {
			return ""
		}
		prec = n
	}
	return fmt.Sprintf("%.*f,%.*f", prec, ctx.POI.Lat, prec, ctx.POI.Lon)
}

func biFallback(_ *Context, args []string) string {
	if len(args) < 2 {
		return ""
	}
	if args[0] != "" {
		return args[0]
	}
	return args[1]
}

func biIfEmpty(_ *Context, args []string) string {
	if len(args) < 2 {
		return ""
	}
	if args[0] == "" {
		return args[1]
	}
	return arg(args, 2)
}

func biIfNotEmpty(_ *Context, args []string) string {
	if len(args) < 2 {
		return ""
	}
	if args[0] != "" {
		return args[1]
	}
	return arg(args, 2)
}

// compareBuiltin builds a conditional over a three-way comparison:
// numeric when both operands parse as floats, lexicographic otherwise.
func compareBuiltin(accept func(int) bool) Builtin {
	return func(_ *Context, args []string) string {
		if len(args) < 3 {
			return ""
		}
		if accept(compareValues(args[0], args[1])) {
			return args[2]
		}
		return arg(args, 3)
	}
}

func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func biI18N(ctx *Context, args []string) string {
	if len(args) < 1 || args[0] == "" {
		return ""
	}
	return ctx.Bundle.Resolve(ctx.Language, args[0], args[1:]...)
}

func biLat(ctx *Context, _ []string) string {
	return strconv.FormatFloat(ctx.POI.Lat, 'f', -1, 64)
}

func biLng(ctx *Context, _ []string) string {
	return strconv.FormatFloat(ctx.POI.Lon, 'f', -1, 64)
}

func biLength(_ *Context, args []string) string {
	return strconv.Itoa(utf8.RuneCountInString(arg(args, 0)))
}

func biLowercase(_ *Context, args []string) string {
	return strings.ToLower(arg(args, 0))
}

func biUppercase(_ *Context, args []string) string {
	return strings.ToUpper(arg(args, 0))
}

func biNavURL(ctx *Context, _ []string) string {
	return strings.NewReplacer(
		"{LAT}", strconv.FormatFloat(ctx.POI.Lat, 'f', -1, 64),
		"{LON}", strconv.FormatFloat(ctx.POI.Lon, 'f', -1, 64),
		"{NAME}", url.QueryEscape(ctx.POI.Name),
	).Replace(ctx.NavProvider)
}

func biObjective(ctx *Context, _ []string) string {
	return catalog.DisplayText(catalog.KindObjective, ctx.Objective, ctx.Language, ctx.Bundle)
}

func biReward(ctx *Context, _ []string) string {
	return catalog.DisplayText(catalog.KindReward, ctx.Reward, ctx.Language, ctx.Bundle)
}

// taskIconBuiltin resolves the icon URL for a task. For rewards, an
// encounter with exactly one candidate species substitutes the species
// icon when the hook enables species icons.
func taskIconBuiltin(pick func(*Context) model.Task, isReward bool) Builtin {
	return func(ctx *Context, args []string) string {
		if ctx.Icons == nil {
			return ""
		}
		variant := ctx.Variant
		if v := strings.TrimSpace(arg(args, 0)); v != "" {
			variant = icons.Variant(v)
		}
		task := pick(ctx)
		if isReward && ctx.SpeciesIcon && catalog.IsEncounter(task) {
			if species := catalog.ListParam(task, string(catalog.ParamSpecies)); len(species) == 1 {
				return ctx.Icons.ResolveSpecies(ctx.SpeciesSet, species[0], variant)
			}
		}
		return ctx.Icons.Resolve(ctx.IconSet, icons.TaskIcon(task), variant)
	}
}

// taskParamBuiltin renders a task parameter: a 1-based indexed list
// element when an index is given, the joined list or scalar otherwise.
func taskParamBuiltin(pick func(*Context) model.Task) Builtin {
	return func(ctx *Context, args []string) string {
		if len(args) < 1 || args[0] == "" {
			return ""
		}
		task := pick(ctx)
		key := strings.TrimSpace(args[0])

		if list := catalog.ListParam(task, key); list != nil {
			if idxStr := strings.TrimSpace(arg(args, 1)); idxStr != "" {
				idx, err := strconv.Atoi(idxStr)
				if err != nil || idx < 1 || idx > len(list) {
					return ""
				}
				return list[idx-1]
			}
			return strings.Join(list, ctx.Bundle.Resolve(ctx.Language, "list.separator"))
		}
		if n, ok := catalog.NumberParam(task, key); ok {
			return strconv.Itoa(n)
		}
		if s, ok := task.Param(key).(string); ok {
			return s
		}
		return ""
	}
}

func taskParamCountBuiltin(pick func(*Context) model.Task) Builtin {
	return func(ctx *Context, args []string) string {
		if len(args) < 1 || args[0] == "" {
			return ""
		}
		task := pick(ctx)
		key := strings.TrimSpace(args[0])
		if list := catalog.ListParam(task, key); list != nil {
			return strconv.Itoa(len(list))
		}
		if task.Param(key) != nil {
			return "1"
		}
		return "0"
	}
}

func padBuiltin(left bool) Builtin {
	return func(_ *Context, args []string) string {
		if len(args) < 2 {
			return ""
		}
		s := args[0]
		width, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || width < 0 {
			return ""
		}
		pad := arg(args, 2)
		if pad == "" {
			pad = " "
		}
		for utf8.RuneCountInString(s) < width {
			if left {
				s = pad + s
			} else {
				s += pad
			}
		}
		return s
	}
}

func biPOI(ctx *Context, _ []string) string {
	return ctx.POI.Name
}

func biReporter(ctx *Context, _ []string) string {
	return ctx.Reporter
}

func biSiteURL(ctx *Context, _ []string) string {
	return ctx.SiteURL
}

func biSubstring(_ *Context, args []string) string {
	if len(args) < 2 {
		return ""
	}
	runes := []rune(args[0])
	start, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return ""
	}
	if start < 0 {
		start = len(runes) + start
	}
	if start < 0 {
		start = 0
	}
	if start >= len(runes) {
		return ""
	}
	end := len(runes)
	if lenStr := strings.TrimSpace(arg(args, 2)); lenStr != "" {
		n, err := strconv.Atoi(lenStr)
		if err != nil || n < 0 {
			return ""
		}
		if start+n < end {
			end = start + n
		}
	}
	return string(runes[start:end])
}

func biTime(ctx *Context, args []string) string {
	layout := strings.Join(args, ",")
	if layout == "" {
		layout = time.RFC3339
	}
	return ctx.Timestamp.Format(layout)
}
