package dispatch

import (
	"fieldmap/internal/catalog"
	"fieldmap/internal/geo"
	"fieldmap/internal/model"
)

// Eligible reports whether a hook should fire for the report. fence is
// the hook's geofence, already loaded, or nil when the hook declares
// none.
func Eligible(hook model.Webhook, report model.Report, fence *model.Geofence) bool {
	if !hook.Active {
		return false
	}
	if fence != nil && !geo.Contains(*fence, report.POI.Lat, report.POI.Lon) {
		return false
	}
	if !filterPasses(hook.ObjectiveFilter, report.Objective) {
		return false
	}
	return filterPasses(hook.RewardFilter, report.Reward)
}

// filterPasses evaluates one task filter: an empty pattern list always
// passes; otherwise the hook fires exactly when pattern-match presence
// agrees with the filter mode.
func filterPasses(f model.TaskFilter, task model.Task) bool {
	if len(f.Patterns) == 0 {
		return true
	}
	matched := false
	for _, p := range f.Patterns {
		if MatchPattern(p, task) {
			matched = true
			break
		}
	}
	return matched == (f.Mode != model.ModeBlacklist)
}

// MatchPattern reports whether a task satisfies a filter pattern: same
// type, and every pattern parameter present in the task — list params as
// subsets, scalars by equality.
func MatchPattern(pattern, task model.Task) bool {
	if pattern.Type != task.Type {
		return false
	}
	for key, want := range pattern.Params {
		if !paramMatches(want, task, key) {
			return false
		}
	}
	return true
}

func paramMatches(want any, task model.Task, key string) bool {
	if wantList := catalog.ListParam(model.Task{Params: map[string]any{key: want}}, key); wantList != nil {
		have := catalog.ListParam(task, key)
		for _, w := range wantList {
			if !contains(have, w) {
				return false
			}
		}
		return true
	}
	if wantN, ok := catalog.NumberParam(model.Task{Params: map[string]any{key: want}}, key); ok {
		haveN, ok := catalog.NumberParam(task, key)
		return ok && haveN == wantN
	}
	return want == task.Param(key)
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
