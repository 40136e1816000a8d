// Package resolver disambiguates client-supplied POI references and
// research task descriptions into concrete identities.
//
// A POI reference resolves to a candidate set: zero candidates means
// nothing matched, one is unambiguous, more than one means the caller has
// to disambiguate. The resolver never silently picks one of several
// equally good matches.
package resolver

import (
	"errors"

	"fieldmap/internal/catalog"
	"fieldmap/internal/geo"
	"fieldmap/internal/i18n"
	"fieldmap/internal/model"
)

// ErrNotResolvable is returned when a query carries none of the fields
// the caller is permitted to resolve by.
var ErrNotResolvable = errors.New("query not resolvable")

// ErrMatchModeNotImplemented is returned when a client requests a fuzzy
// match algorithm other than the supported one.
var ErrMatchModeNotImplemented = errors.New("match mode not implemented")

// ExactMatchThreshold is the minimum bidirectional similarity score
// (0-200 scale) a candidate must reach when exact-only matching is
// requested. The default demands a perfect match in both directions;
// operators may tune it down.
var ExactMatchThreshold = 200.0

// MatchAlgoSimilarText is the only implemented fuzzy match algorithm.
const MatchAlgoSimilarText = 2

// Place is a resolvable map entity: a POI or an arena.
type Place struct {
	ID   int64
	Name string
	Lat  float64
	Lon  float64
}

// POIPlaces adapts a POI list for resolution.
func POIPlaces(pois []model.POI) []Place {
	places := make([]Place, len(pois))
	for i, p := range pois {
		places[i] = Place{ID: p.ID, Name: p.Name, Lat: p.Lat, Lon: p.Lon}
	}
	return places
}

// ArenaPlaces adapts an arena list for resolution.
func ArenaPlaces(arenas []model.Arena) []Place {
	places := make([]Place, len(arenas))
	for i, a := range arenas {
		places[i] = Place{ID: a.ID, Name: a.Name, Lat: a.Lat, Lon: a.Lon}
	}
	return places
}

// PlaceQuery is a client-supplied place reference. Fields are tried in
// strict priority order: explicit ID, then coordinates, then name.
type PlaceQuery struct {
	ID            *int64
	Lat           *float64
	Lon           *float64
	Name          *string
	CaseSensitive bool
	ExactOnly     bool
}

// ResolvePlace resolves a query into a candidate ID set.
//
// An explicit ID short-circuits everything, regardless of caller kind.
// Coordinate and name matching are only permitted for non-interactive
// clients. Coordinate matching returns the single nearest place, ties
// going to the first one encountered. Name matching returns every place
// tied at the maximum similarity score; with ExactOnly set, only
// candidates at or above ExactMatchThreshold are kept.
//
// ErrNotResolvable means no usable field was present; an empty candidate
// set means the query was usable but matched nothing.
func ResolvePlace(q PlaceQuery, places []Place, caller model.CallerKind) ([]int64, error) {
	if q.ID != nil {
		return []int64{*q.ID}, nil
	}

	if q.Lat != nil && q.Lon != nil && caller == model.CallerClient {
		return nearest(*q.Lat, *q.Lon, places), nil
	}

	if q.Name != nil && caller == model.CallerClient {
		return byName(*q.Name, q, places), nil
	}

	return nil, ErrNotResolvable
}

func nearest(lat, lon float64, places []Place) []int64 {
	var (
		bestID   int64
		bestDist float64
		found    bool
	)
	for _, p := range places {
		d := geo.Distance(lat, lon, p.Lat, p.Lon)
		if !found || d < bestDist {
			bestID, bestDist, found = p.ID, d, true
		}
	}
	if !found {
		return nil
	}
	return []int64{bestID}
}

func byName(name string, q PlaceQuery, places []Place) []int64 {
	var (
		best  float64
		found bool
	)
	scores := make([]float64, len(places))
	for i, p := range places {
		s := Similarity(name, p.Name, q.CaseSensitive)
		scores[i] = s
		if !found || s > best {
			best, found = s, true
		}
	}
	if !found {
		return nil
	}

	var ids []int64
	for i, p := range places {
		if scores[i] != best {
			continue
		}
		if q.ExactOnly && scores[i] < ExactMatchThreshold {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}

// TaskInput is a client-supplied objective or reward description: either
// an explicit task or free text to fuzzy-match against the catalog's
// localized display strings.
type TaskInput struct {
	Task   *model.Task
	Match  string
	Algo   int
	Params map[string]any
}

// ResolveTask resolves a task input into a canonical catalog task.
//
// An explicit task is validated and returned as-is. Free text is scored
// against the singular and plural display strings of every catalog entry
// in the given language; the single best-scoring type wins, with any
// client-supplied params merged in before validation.
func ResolveTask(kind catalog.TaskKind, in TaskInput, lang string, bundle *i18n.Bundle) (model.Task, error) {
	validate := catalog.ValidateObjective
	if kind == catalog.KindReward {
		validate = catalog.ValidateReward
	}

	if in.Task != nil {
		if err := validate(*in.Task); err != nil {
			return model.Task{}, err
		}
		return *in.Task, nil
	}

	if in.Match == "" {
		return model.Task{}, ErrNotResolvable
	}
	if in.Algo != 0 && in.Algo != MatchAlgoSimilarText {
		return model.Task{}, ErrMatchModeNotImplemented
	}

	var (
		bestType  string
		bestScore float64
	)
	for typ := range catalog.Vocabulary(kind) {
		for _, form := range []string{"singular", "plural"} {
			key := string(kind) + "." + typ + "." + form
			if !bundle.Has(lang, key) {
				continue
			}
			s := Similarity(in.Match, bundle.Resolve(lang, key), false)
			if s > bestScore {
				bestType, bestScore = typ, s
			}
		}
	}
	if bestType == "" {
		return model.Task{}, ErrNotResolvable
	}

	task := model.Task{Type: bestType, Params: defaultParams(kind, bestType)}
	for k, v := range in.Params {
		task.Params[k] = v
	}
	if err := validate(task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// defaultParams fills the numeric parameters a fuzzy match cannot supply.
// List parameters stay absent; the client has to provide them alongside
// the match text.
func defaultParams(kind catalog.TaskKind, typ string) map[string]any {
	params := make(map[string]any)
	entry := catalog.Vocabulary(kind)[typ]
	for _, p := range entry.Params {
		switch p {
		case catalog.ParamQuantity, catalog.ParamMinTier:
			params[string(p)] = 1
		}
	}
	return params
}
