package server

import (
	"fmt"

	"github.com/tidwall/gjson"

	"fieldmap/internal/model"
	"fieldmap/internal/resolver"
)

// reportRequest carries the flat fields of a report submission. The
// objective and reward sections are polymorphic and parsed separately.
type reportRequest struct {
	ID            *int64   `json:"id"`
	Lat           *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon           *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	Name          *string  `json:"name"`
	CaseSensitive bool     `json:"case_sensitive"`
	Exact         bool     `json:"exact"`
	Reporter      string   `json:"reporter"`
}

type moveRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

// taskInput extracts one task section from the raw request body. A
// section is either an explicit task {type, params} or a fuzzy match
// request {match, algo?, params?}.
func taskInput(body []byte, section string) (resolver.TaskInput, error) {
	node := gjson.GetBytes(body, section)
	if !node.Exists() {
		return resolver.TaskInput{}, fmt.Errorf("missing %s", section)
	}
	if !node.IsObject() {
		return resolver.TaskInput{}, fmt.Errorf("%s is not an object", section)
	}

	params := paramsMap(node.Get("params"))

	if typ := node.Get("type"); typ.Exists() {
		if typ.Type != gjson.String {
			return resolver.TaskInput{}, fmt.Errorf("%s.type is not a string", section)
		}
		return resolver.TaskInput{
			Task: &model.Task{Type: typ.String(), Params: params},
		}, nil
	}

	if match := node.Get("match"); match.Exists() {
		if match.Type != gjson.String || match.String() == "" {
			return resolver.TaskInput{}, fmt.Errorf("%s.match is not a usable string", section)
		}
		return resolver.TaskInput{
			Match:  match.String(),
			Algo:   int(node.Get("algo").Int()),
			Params: params,
		}, nil
	}

	return resolver.TaskInput{}, fmt.Errorf("%s has neither type nor match", section)
}

func paramsMap(node gjson.Result) map[string]any {
	if !node.IsObject() {
		return map[string]any{}
	}
	params, ok := node.Value().(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return params
}
