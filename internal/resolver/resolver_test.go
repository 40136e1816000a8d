package resolver

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fieldmap/internal/catalog"
	"fieldmap/internal/i18n"
	"fieldmap/internal/model"
)

func ptr[T any](v T) *T { return &v }

var testPlaces = []Place{
	{ID: 1, Name: "Clock Tower", Lat: 10.0, Lon: 20.0},
	{ID: 2, Name: "Clock Square", Lat: 10.5, Lon: 20.5},
	{ID: 3, Name: "Old Fountain", Lat: 50.0, Lon: 8.0},
}

func TestResolvePlaceByID(t *testing.T) {
	// An explicit ID wins regardless of caller kind and other fields.
	for _, caller := range []model.CallerKind{model.CallerInteractive, model.CallerClient} {
		q := PlaceQuery{ID: ptr(int64(3)), Lat: ptr(10.0), Lon: ptr(20.0), Name: ptr("Clock Tower")}
		got, err := ResolvePlace(q, testPlaces, caller)
		if err != nil {
			t.Fatalf("resolve (%s): %v", caller, err)
		}
		if diff := cmp.Diff([]int64{3}, got); diff != "" {
			t.Errorf("candidates mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResolvePlaceByCoords(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		places   []Place
		want     []int64
	}{
		{name: "nearest wins", lat: 10.1, lon: 20.1, places: testPlaces, want: []int64{1}},
		{name: "nearest other", lat: 49.0, lon: 8.5, places: testPlaces, want: []int64{3}},
		{name: "empty place set yields empty candidates", lat: 0, lon: 0, places: nil, want: nil},
		{
			// Two places at the identical spot: the first encountered wins.
			name: "tie breaks to first encountered",
			lat:  7.0, lon: 7.0,
			places: []Place{{ID: 8, Name: "A", Lat: 7, Lon: 7}, {ID: 9, Name: "B", Lat: 7, Lon: 7}},
			want:   []int64{8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := PlaceQuery{Lat: ptr(tt.lat), Lon: ptr(tt.lon)}
			got, err := ResolvePlace(q, tt.places, model.CallerClient)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolvePlaceCoordsDeniedForInteractive(t *testing.T) {
	q := PlaceQuery{Lat: ptr(10.0), Lon: ptr(20.0)}
	_, err := ResolvePlace(q, testPlaces, model.CallerInteractive)
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}

func TestResolvePlaceByName(t *testing.T) {
	tests := []struct {
		name  string
		query PlaceQuery
		want  []int64
	}{
		{
			name:  "own exact name case sensitive",
			query: PlaceQuery{Name: ptr("Clock Tower"), CaseSensitive: true},
			want:  []int64{1},
		},
		{
			name:  "case insensitive by default",
			query: PlaceQuery{Name: ptr("clock tower")},
			want:  []int64{1},
		},
		{
			name:  "exact-only with perfect match",
			query: PlaceQuery{Name: ptr("Old Fountain"), ExactOnly: true},
			want:  []int64{3},
		},
		{
			name:  "exact-only filters below-threshold ties",
			query: PlaceQuery{Name: ptr("Clok Towr"), ExactOnly: true},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePlace(tt.query, testPlaces, model.CallerClient)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolvePlaceNameTies(t *testing.T) {
	// Two names sharing a prefix and differing only in an equally long
	// suffix score identically: both must surface as candidates.
	places := []Place{
		{ID: 1, Name: "Clock Tower"},
		{ID: 2, Name: "Clock Manor"},
		{ID: 3, Name: "Old Fountain"},
	}
	q := PlaceQuery{Name: ptr("Clock ")}
	got, err := ResolvePlace(q, places, model.CallerClient)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 2}, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePlaceMaxScoreOnly(t *testing.T) {
	// Every returned candidate carries the maximum score; no lower-scored
	// place sneaks in.
	q := PlaceQuery{Name: ptr("Clock Tower")}
	got, err := ResolvePlace(q, testPlaces, model.CallerClient)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected exactly the perfect match, got %v", got)
	}
}

func TestResolvePlaceNotResolvable(t *testing.T) {
	_, err := ResolvePlace(PlaceQuery{}, testPlaces, model.CallerClient)
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name          string
		a, b          string
		caseSensitive bool
		want          float64
		atLeast       bool
	}{
		{name: "identical strings score 200", a: "Clock Tower", b: "Clock Tower", caseSensitive: true, want: 200},
		{name: "case folded when insensitive", a: "CLOCK TOWER", b: "clock tower", want: 200},
		{name: "disjoint strings score 0", a: "abc", b: "xyz", caseSensitive: true, want: 0},
		{name: "partial overlap scores between", a: "Clock", b: "Clock Tower", caseSensitive: true, want: 100, atLeast: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b, tt.caseSensitive)
			if tt.atLeast {
				if got < tt.want || got >= 200 {
					t.Errorf("Similarity = %f, want in [%f, 200)", got, tt.want)
				}
			} else if got != tt.want {
				t.Errorf("Similarity = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "Clock Tower", "Tower Clock"
	if Similarity(a, b, true) != Similarity(b, a, true) {
		t.Error("bidirectional score must be symmetric")
	}
}

func newBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.NewBundle("en")
	if err != nil {
		t.Fatalf("new bundle: %v", err)
	}
	return b
}

func TestResolveTaskExplicit(t *testing.T) {
	b := newBundle(t)
	task := model.Task{Type: "rocket_grunt", Params: map[string]any{}}
	got, err := ResolveTask(catalog.KindObjective, TaskInput{Task: &task}, "en", b)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff(task, got); diff != "" {
		t.Errorf("task mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTaskExplicitInvalid(t *testing.T) {
	b := newBundle(t)
	task := model.Task{Type: "dance", Params: map[string]any{}}
	if _, err := ResolveTask(catalog.KindObjective, TaskInput{Task: &task}, "en", b); err == nil {
		t.Error("expected catalog validation to fail")
	}
}

func TestResolveTaskFuzzy(t *testing.T) {
	b := newBundle(t)

	tests := []struct {
		name     string
		kind     catalog.TaskKind
		in       TaskInput
		wantType string
	}{
		{
			name:     "exact display text",
			kind:     catalog.KindObjective,
			in:       TaskInput{Match: "Defeat a rocket grunt"},
			wantType: "rocket_grunt",
		},
		{
			name:     "slightly off display text",
			kind:     catalog.KindObjective,
			in:       TaskInput{Match: "defeat rocket grunt"},
			wantType: "rocket_grunt",
		},
		{
			name:     "reward vocabulary",
			kind:     catalog.KindReward,
			in:       TaskInput{Match: "Unknown reward"},
			wantType: "unknown",
		},
		{
			name:     "plural form matches with params merged",
			kind:     catalog.KindObjective,
			in:       TaskInput{Match: "Catch 3 creatures", Params: map[string]any{"quantity": 3}},
			wantType: "catch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTask(tt.kind, tt.in, "en", b)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got.Type != tt.wantType {
				t.Errorf("resolved type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestResolveTaskUnsupportedAlgo(t *testing.T) {
	b := newBundle(t)
	_, err := ResolveTask(catalog.KindObjective, TaskInput{Match: "anything", Algo: 1}, "en", b)
	if !errors.Is(err, ErrMatchModeNotImplemented) {
		t.Errorf("expected ErrMatchModeNotImplemented, got %v", err)
	}
}

func TestResolveTaskEmptyInput(t *testing.T) {
	b := newBundle(t)
	_, err := ResolveTask(catalog.KindObjective, TaskInput{}, "en", b)
	if !errors.Is(err, ErrNotResolvable) {
		t.Errorf("expected ErrNotResolvable, got %v", err)
	}
}
