package loader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"
)

// EnvOverlay applies prefixed environment variables to a JSON document.
//
// SWITCHBOARD_EVENTS_QUEUE_CAPACITY addresses "events.queue_capacity": the
// first segment after the prefix names the section and the rest, joined with
// underscores, names the setting. The variable must address an existing
// setting and is converted to that setting's JSON type.
type EnvOverlay struct {
	prefix string
}

// NewEnvOverlay creates an overlay for variables starting with prefix.
// The prefix should include the trailing underscore (e.g., "SWITCHBOARD_").
func NewEnvOverlay(prefix string) *EnvOverlay {
	return &EnvOverlay{prefix: prefix}
}

// EnvError reports a variable that could not be applied.
type EnvError struct {
	Var    string
	Path   string
	Reason string
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Var, e.Path, e.Reason)
}

// Apply returns doc with every matching variable in environ applied.
// Variables are applied in name order; all failures are returned together.
func (o *EnvOverlay) Apply(doc []byte, environ []string) ([]byte, error) {
	vars := o.collect(environ)
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		path := o.Path(name)
		next, err := set(doc, path, vars[name])
		if err != nil {
			errs = multierr.Append(errs, &EnvError{Var: name, Path: path, Reason: err.Error()})
			continue
		}
		doc = next
	}
	return doc, errs
}

// Path converts SWITCHBOARD_EVENTS_QUEUE_CAPACITY to events.queue_capacity.
func (o *EnvOverlay) Path(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, o.prefix))
	section, setting, found := strings.Cut(name, "_")
	if !found {
		return section
	}
	return section + "." + setting
}

func (o *EnvOverlay) collect(environ []string) map[string]string {
	vars := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, o.prefix) || name == o.prefix {
			continue
		}
		vars[name] = value
	}
	return vars
}

// set writes raw at path, typed by the value currently there.
func set(doc []byte, path, raw string) ([]byte, error) {
	current := gjson.GetBytes(doc, path)
	if !current.Exists() {
		return nil, fmt.Errorf("unknown setting")
	}

	switch current.Type {
	case gjson.Number:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", raw)
		}
		return sjson.SetBytes(doc, path, n)

	case gjson.True, gjson.False:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("expected a boolean, got %q", raw)
		}
		return sjson.SetBytes(doc, path, b)

	case gjson.String:
		return sjson.SetBytes(doc, path, raw)

	default:
		// Lists, maps and unset (null) settings.
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			if !gjson.Valid(trimmed) {
				return nil, fmt.Errorf("invalid JSON value")
			}
			return sjson.SetRawBytes(doc, path, []byte(trimmed))
		}
		if current.IsObject() {
			return nil, fmt.Errorf("expected a JSON object")
		}
		if trimmed == "" {
			return sjson.SetBytes(doc, path, []string{})
		}
		parts := strings.Split(trimmed, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return sjson.SetBytes(doc, path, parts)
	}
}
