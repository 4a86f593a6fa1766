// Package out renders response envelopes as JSON or plain text.
package out

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/ggonzalez94/solw/internal/config"
	"github.com/ggonzalez94/solw/internal/model"
)

// Render writes env in the configured mode. JSON mode prints the whole
// envelope (or only data with --results-only). Plain mode prints a status
// header, one key=value line per record, then warnings.
func Render(w io.Writer, env model.Envelope, settings config.Settings) error {
	data := env.Data
	if len(settings.SelectFields) > 0 {
		data = project(data, settings.SelectFields)
	}
	plain := settings.OutputMode == "plain"

	switch {
	case settings.ResultsOnly && !plain:
		return encodeJSON(w, data)
	case settings.ResultsOnly:
		return renderRecords(w, data)
	case !plain:
		env.Data = data
		return encodeJSON(w, env)
	}

	if _, err := fmt.Fprintln(w, header(env)); err != nil {
		return err
	}
	if env.Success {
		if err := renderRecords(w, data); err != nil {
			return err
		}
	}
	for _, warning := range env.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// header is the first plain line, e.g. "ok swap quote cache=hit" or
// "error[30 insufficient_balance] wrap: insufficient balance ...".
func header(env model.Envelope) string {
	if env.Error != nil {
		return fmt.Sprintf("error[%d %s] %s: %s", env.Error.Code, env.Error.Type, env.Meta.Command, env.Error.Message)
	}
	parts := []string{"ok", env.Meta.Command}
	if status := env.Meta.Cache.Status; status != "" && status != "bypass" {
		cache := "cache=" + status
		if env.Meta.Cache.Stale {
			cache += "(stale)"
		}
		parts = append(parts, cache)
	}
	if env.Meta.Partial {
		parts = append(parts, "partial")
	}
	return strings.Join(parts, " ")
}

func renderRecords(w io.Writer, data any) error {
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return writeLine(w, data)
	}
	if v.Len() == 0 {
		_, err := fmt.Fprintln(w, "[]")
		return err
	}
	for i := range v.Len() {
		if err := writeLine(w, v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, item any) error {
	line, err := toLine(normalizeValue(item))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, line)
	return err
}

func project(data any, fields []string) any {
	n := normalizeValue(data)
	switch t := n.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, projectMap(m, fields))
		}
		return out
	case map[string]any:
		return projectMap(t, fields)
	default:
		return n
	}
}

// projectMap keeps the selected fields. A dotted field reaches into nested
// objects and is emitted under its full dotted name.
func projectMap(m map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := lookup(m, f); ok {
			out[f] = v
		}
	}
	return out
}

func lookup(m map[string]any, path string) (any, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(child, rest)
}

func normalizeValue(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}

func toLine(v any) (string, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = appendPairs(parts, k, t[k])
		}
		return strings.Join(parts, " "), nil
	default:
		buf, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}
}

// appendPairs flattens nested objects into dotted keys.
func appendPairs(parts []string, prefix string, v any) []string {
	nested, ok := v.(map[string]any)
	if !ok {
		if list, isList := v.([]any); isList {
			buf, err := json.Marshal(list)
			if err == nil {
				return append(parts, fmt.Sprintf("%s=%s", prefix, buf))
			}
		}
		return append(parts, fmt.Sprintf("%s=%v", prefix, v))
	}
	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = appendPairs(parts, prefix+"."+k, nested[k])
	}
	return parts
}
