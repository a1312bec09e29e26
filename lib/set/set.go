package set

import (
	"encoding/json"
	"sort"
)

// StringSet is a lightweight set of strings. It encodes as a sorted list in
// both JSON and YAML.
type StringSet map[string]struct{}

func NewStringSet(values ...string) StringSet {
	ss := make(StringSet, len(values))
	for _, value := range values {
		ss.Add(value)
	}
	return ss
}

func (ss StringSet) Add(v string) StringSet {
	ss[v] = struct{}{}
	return ss
}

func (ss StringSet) Has(v string) bool {
	_, ok := ss[v]
	return ok
}

// Values returns the members in ascending order. It is never nil.
func (ss StringSet) Values() []string {
	values := make([]string, 0, len(ss))
	for v := range ss {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func (ss StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ss.Values())
}

func (ss *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*ss = NewStringSet(values...)
	return nil
}

func (ss StringSet) MarshalYAML() (interface{}, error) {
	return ss.Values(), nil
}
