package clair

import "strings"

// CIMap is a decoded JSON object whose keys are matched regardless of case.
// Clair is not consistent about the casing of its fields.
type CIMap struct {
	m map[string]any
}

func NewCIMap(raw map[string]any) CIMap {
	c := CIMap{m: make(map[string]any, len(raw))}
	for k, v := range raw {
		c.Set(k, v)
	}

	return c
}

func (c CIMap) Set(key string, value any) {
	c.m[strings.ToLower(key)] = value
}

func (c CIMap) Get(key string) (any, bool) {
	v, ok := c.m[strings.ToLower(key)]
	return v, ok
}

func (c CIMap) Len() int {
	return len(c.m)
}

// String returns the string stored at key, or "" when it is absent or not a
// string.
func (c CIMap) String(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)

	return s
}

// Map returns the object stored at key, or an empty map.
func (c CIMap) Map(key string) CIMap {
	v, _ := c.Get(key)
	m, _ := v.(map[string]any)

	return NewCIMap(m)
}

// Slice returns the objects of the array stored at key, skipping elements
// that are not objects.
func (c CIMap) Slice(key string) []CIMap {
	v, _ := c.Get(key)
	items, _ := v.([]any)

	out := make([]CIMap, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, NewCIMap(m))
		}
	}

	return out
}
