package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// kindsToArgs converts edge kinds to []any for use with database/sql.
func kindsToArgs(kinds []EdgeKind) []any {
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = string(k)
	}
	return args
}

// marshalProperties converts a property map to JSON text for storage.
func marshalProperties(props map[string]string) string {
	if len(props) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(props)
	return string(b)
}

// unmarshalProperties converts JSON text back to a property map.
func unmarshalProperties(s string) map[string]string {
	if s == "" || s == "{}" || s == "null" {
		return nil
	}
	var props map[string]string
	_ = json.Unmarshal([]byte(s), &props)
	return props
}
