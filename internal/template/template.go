// Package template renders agent system/user prompts by plain named
// substitution — {name} placeholders replaced by a resolved string value.
// Grounded on original_source/demos/basic.py's prompt templates
// ("Analyze the code in the file at this absolute path:\n{filepath}..."),
// which use Python's str.format-equivalent plain substitution with no
// conditionals or helper functions. This is deliberately simpler than the
// teacher's internal/util/template.go (an html/template-based engine with
// custom Funcs) — spec.md §4.1 asks only for "named substitution," and the
// original source's actual templates never exercise anything beyond it.
package template

import (
	"fmt"
	"os"
	"regexp"

	"github.com/lwcsrf/netflux/core"
)

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Render substitutes every {name} placeholder in tmpl using values. A
// placeholder with no matching key is an argument error (spec.md §4.1:
// "Missing variables are an argument error.").
func Render(tmpl string, values map[string]string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := token[1 : len(token)-1]
		v, ok := values[name]
		if !ok {
			missing = name
			return token
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("template: missing substitution for {%s}", missing)
	}
	return out, nil
}

// ResolveInputs computes the substitution map for an agent spec's declared
// input variables: a FilePath-tagged variable is read from disk at
// invocation time and replaced by its contents; any other variable is
// substituted literally.
func ResolveInputs(declared []core.FunctionArg, args core.Args) (map[string]string, error) {
	values := make(map[string]string, len(declared))
	for _, a := range declared {
		if !args.Has(a.Name) {
			continue
		}
		if a.Type != core.ArgString || !a.FilePath {
			values[a.Name] = args.Raw()[a.Name].String()
			continue
		}
		path := args.String(a.Name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("template: reading filepath input %q (%s): %w", a.Name, path, err)
		}
		values[a.Name] = string(data)
	}
	return values, nil
}

// RenderAgentPrompts resolves inputs once and renders both the system and
// user prompt templates from them, per spec.md §4.1's "for each agent
// invocation, the scheduler resolves each input variable... into the
// system and user prompt templates."
func RenderAgentPrompts(spec *core.AgentSpec, args core.Args) (system, user string, err error) {
	values, err := ResolveInputs(spec.Args, args)
	if err != nil {
		return "", "", err
	}
	system, err = Render(spec.SystemPromptTemplate, values)
	if err != nil {
		return "", "", err
	}
	user, err = Render(spec.UserPromptTemplate, values)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}
