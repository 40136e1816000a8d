// Package template renders webhook body templates. A template contains
// <%NAME(args)%> substitution tokens, possibly nested inside each
// other's arguments; rendering resolves them innermost-first via a
// replacement ledger of opaque markers and applies destination escaping
// once, at the very end, so substituted content can never be
// re-interpreted as template syntax.
package template

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldmap/internal/i18n"
	"fieldmap/internal/icons"
	"fieldmap/internal/model"
)

// maxPasses bounds the evaluation loop. Each pass resolves at least one
// nesting level, so templates deeper than this render their remainder
// verbatim instead of spinning.
const maxPasses = 32

// Context is the resolved report state a template is rendered against.
// The timestamp is captured once per report so every hook in a dispatch
// round renders the same time.
type Context struct {
	POI         model.POI
	Objective   model.Task
	Reward      model.Task
	Reporter    string
	Timestamp   time.Time
	Language    string
	IconSet     string
	SpeciesSet  string
	SpeciesIcon bool
	Variant     icons.Variant
	SiteURL     string
	NavProvider string
	Bundle      *i18n.Bundle
	Icons       *icons.Registry
}

// Builtin is one substitution function. Builtins are pure: they compute
// a raw, unescaped replacement from the context and their arguments, and
// return "" for anything malformed.
type Builtin func(ctx *Context, args []string) string

// Renderer holds the builtin function table.
type Renderer struct {
	builtins map[string]Builtin
}

// New creates a Renderer with the full builtin table registered.
func New() *Renderer {
	r := &Renderer{builtins: make(map[string]Builtin)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a builtin under the given (case-insensitive)
// name.
func (r *Renderer) Register(name string, fn Builtin) {
	r.builtins[strings.ToUpper(name)] = fn
}

// Render evaluates every token in tpl against ctx and escapes the
// results with escape. Rendering is total: unknown tokens and malformed
// arguments become empty strings, never errors.
func (r *Renderer) Render(tpl string, ctx *Context, escape EscapeFunc) string {
	ledger := make(map[string]string)
	work := tpl

	for pass := 0; pass < maxPasses; pass++ {
		tokens := scan(work)
		if len(tokens) == 0 {
			break
		}
		// Replace back to front so earlier token offsets stay valid.
		for i := len(tokens) - 1; i >= 0; i-- {
			tok := tokens[i]
			args := make([]string, len(tok.Args))
			for j, a := range tok.Args {
				args[j] = substituteMarkers(a, ledger, nil)
			}
			value := r.eval(tok.Name, args, ctx)

			marker := uuid.NewString()
			ledger[marker] = value
			work = work[:tok.Start] + marker + work[tok.End:]
		}
	}

	return substituteMarkers(work, ledger, escape)
}

func (r *Renderer) eval(name string, args []string, ctx *Context) string {
	fn, ok := r.builtins[strings.ToUpper(name)]
	if !ok {
		return ""
	}
	return fn(ctx, args)
}

// substituteMarkers replaces every ledger marker occurring in s with its
// value, optionally escaped. Ledger values never contain markers
// themselves (nested results are resolved into argument text before the
// outer token is evaluated), so one pass suffices.
func substituteMarkers(s string, ledger map[string]string, escape EscapeFunc) string {
	for marker, value := range ledger {
		if !strings.Contains(s, marker) {
			continue
		}
		if escape != nil {
			value = escape(value)
		}
		s = strings.ReplaceAll(s, marker, value)
	}
	return s
}
