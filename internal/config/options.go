package config

import (
	"encoding/json"
	"slices"
	"strconv"
)

// Options holds the parser settings of a source as a free-form JSON object.
// Getters return def when a key is absent or holds an unexpected type.
type Options map[string]any

// Known source option keys.
const (
	OptComma     = "comma"
	OptStrict    = "strict"
	OptHeaderMap = "header_map"
)

var knownOptions = []string{OptComma, OptStrict, OptHeaderMap}

// String returns the string at key, or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def. The strings "true" and "false" are
// accepted as well, so values copied from environment files still work.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Rune returns the first rune of the string at key, or def when it is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	for _, r := range o.String(key, "") {
		return r
	}
	return def
}

// StringMap returns the string-valued entries of the object at key. It is
// never nil.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	m, _ := o[key].(map[string]any)
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Unknown lists the keys of o that no source reads, sorted.
func (o Options) Unknown() []string {
	var out []string
	for k := range o {
		if !slices.Contains(knownOptions, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	m := map[string]any{}
	if len(b) > 0 && string(b) != "null" {
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
	}
	*o = m
	return nil
}
