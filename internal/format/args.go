package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeArgs serializes event arguments as a compact JSON array. Slashes, Unicode and
// HTML characters are written as-is. Empty or nil args encode as []. Errors encode as
// their message, and a value JSON cannot represent (a channel, a func, a cyclic
// structure) falls back to its fmt rendering as a JSON string.
func EncodeArgs(args []any) string {
	if len(args) == 0 {
		return "[]"
	}

	values := make([]any, len(args))
	for i, a := range args {
		if err, ok := a.(error); ok {
			values[i] = err.Error()
			continue
		}
		values[i] = a
	}

	if out, err := encode(values); err == nil {
		return out
	}

	parts := make([]string, len(values))
	for i, v := range values {
		out, err := encode(v)
		if err != nil {
			out, _ = encode(fmt.Sprint(v))
		}
		parts[i] = out
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
