// Package template renders content templates against event payloads.
//
// Slots use the form @name or @dotted.path (e.g. @subject, @chart.sun).
// Dotted paths descend into nested maps in the variable set. Slots that do
// not resolve are left verbatim so downstream systems can spot them;
// required variables are validated up front instead.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"aims/internal/store"
)

var slotPattern = regexp.MustCompile(`@(\w+(?:\.\w+)*)`)

// MissingVariableError reports every absent required variable at once.
type MissingVariableError struct {
	TemplateKey string
	Missing     []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %q missing required variables: %s",
		e.TemplateKey, strings.Join(e.Missing, ", "))
}

// Render substitutes the template's slots with values from vars.
// It fails with a MissingVariableError listing all absent required
// variables before any substitution happens.
func Render(tmpl *store.Template, vars map[string]any) (string, error) {
	var missing []string
	for _, name := range tmpl.RequiredVariables {
		if _, ok := lookup(vars, name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingVariableError{TemplateKey: tmpl.Key, Missing: missing}
	}

	out := slotPattern.ReplaceAllStringFunc(tmpl.Body, func(match string) string {
		path := match[1:] // strip leading @
		value, ok := lookup(vars, path)
		if !ok {
			return match
		}
		return stringify(value)
	})

	return out, nil
}

// lookup resolves a dotted path against nested maps.
func lookup(vars map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = vars
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
