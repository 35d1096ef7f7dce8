package format

import (
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
)

const (
	// TimestampLayout is the layout of the {{timestamp}} token.
	TimestampLayout = "2006-01-02 15:04:05"

	// DefaultTemplate is used when no template is configured.
	DefaultTemplate = "[{{timestamp}}] Event: {{eventName}}; Args: {{args}}\n"
)

// Built-in placeholder names.
const (
	TimestampKey = "timestamp"
	EventNameKey = "eventName"
	ArgsKey      = "args"
)

// Template is an immutable line layout plus user placeholders.
// Reconfiguration produces a new Template, so one value can be shared across goroutines.
type Template struct {
	text         string
	placeholders map[string]string // token ("{{name}}") -> replacement
}

// NewTemplate creates a template. The two-character sequence `\n` in text is turned
// into a real line break here, once, rather than at format time. Placeholder keys may
// be given as "name" or "{{name}}".
func NewTemplate(text string, placeholders map[string]string) *Template {
	return &Template{
		text:         NormalizeText(text),
		placeholders: normalizePlaceholders(placeholders),
	}
}

// Default returns the built-in template with no user placeholders.
func Default() *Template {
	return NewTemplate(DefaultTemplate, nil)
}

// Text returns the normalized template text.
func (t *Template) Text() string {
	return t.text
}

// Placeholders returns a copy of the user placeholder table keyed by token.
func (t *Template) Placeholders() map[string]string {
	return maps.Clone(t.placeholders)
}

// WithText returns a copy of t using a different template text.
func (t *Template) WithText(text string) *Template {
	return &Template{text: NormalizeText(text), placeholders: t.placeholders}
}

// WithPlaceholders returns a copy of t using a different placeholder table.
func (t *Template) WithPlaceholders(placeholders map[string]string) *Template {
	return &Template{text: t.text, placeholders: normalizePlaceholders(placeholders)}
}

// Format renders e into a line. The timestamp is rendered in loc (time.Local when nil);
// an event without a timestamp is stamped with the current time.
func (t *Template) Format(e eventlog.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	values := map[string]string{
		Token(TimestampKey): ts.In(loc).Format(TimestampLayout),
		Token(EventNameKey): e.Name,
		Token(ArgsKey):      EncodeArgs(e.Args),
	}
	// user placeholders win on collision
	maps.Copy(values, t.placeholders)

	return newReplacer(values).Replace(t.text)
}

// Token wraps a placeholder name in braces: Token("args") == "{{args}}".
func Token(name string) string {
	if strings.HasPrefix(name, "{{") && strings.HasSuffix(name, "}}") {
		return name
	}
	return "{{" + name + "}}"
}

// NormalizeText replaces the escape sequence `\n` with a line break.
func NormalizeText(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}

func normalizePlaceholders(placeholders map[string]string) map[string]string {
	out := make(map[string]string, len(placeholders))
	for k, v := range placeholders {
		out[Token(k)] = v
	}
	return out
}

// newReplacer builds a single-pass replacer. strings.Replacer prefers earlier pairs
// when two tokens match at the same position, so longer tokens go first.
func newReplacer(values map[string]string) *strings.Replacer {
	tokens := make([]string, 0, len(values))
	for token := range values {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	pairs := make([]string, 0, 2*len(tokens))
	for _, token := range tokens {
		pairs = append(pairs, token, values[token])
	}
	return strings.NewReplacer(pairs...)
}
