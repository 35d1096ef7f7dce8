package format

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rmacdonaldsmith/sysevents/pkg/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 17, 9, 3, 7, 0, time.UTC)

func event(name string, args ...any) eventlog.Event {
	e := eventlog.NewEvent(name, args...)
	e.Timestamp = fixedTime
	return e
}

func TestTemplate_DefaultLayout(t *testing.T) {
	line := Default().Format(event("test.event", 123, map[string]string{"a": "b"}), time.UTC)

	assert.Equal(t, "[2024-05-17 09:03:07] Event: test.event; Args: [123,{\"a\":\"b\"}]\n", line)
}

func TestTemplate_RoundTrip(t *testing.T) {
	line := NewTemplate("{{eventName}}:{{args}}", nil).Format(event("orders.created", "x", 1), time.UTC)

	assert.Equal(t, `orders.created:["x",1]`, line)
}

func TestTemplate_UnknownTokensPassThrough(t *testing.T) {
	line := NewTemplate("{{eventName}} {{missing}}", nil).Format(event("e"), time.UTC)

	assert.Equal(t, "e {{missing}}", line)
}

func TestTemplate_CustomPlaceholders(t *testing.T) {
	tmpl := NewTemplate(
		"Event: {{timestamp}}, {{eventName}}, Args: {{args}}, Custom: {{custom}}\n",
		map[string]string{"{{custom}}": "XYZ"},
	)

	line := tmpl.Format(event("format.test", map[string]string{"foo": "bar"}), time.UTC)

	assert.NotContains(t, line, "{{timestamp}}")
	assert.Regexp(t, regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`), line)
	assert.Contains(t, line, "format.test")
	assert.Contains(t, line, `"foo":"bar"`)
	assert.Contains(t, line, "Custom: XYZ")
}

func TestTemplate_PlaceholderKeysWithoutBraces(t *testing.T) {
	tmpl := NewTemplate("{{env}}/{{appVersion}}", map[string]string{"env": "testing", "{{appVersion}}": "1.2.3"})

	assert.Equal(t, "testing/1.2.3", tmpl.Format(event("e"), time.UTC))
	assert.Equal(t, map[string]string{"{{env}}": "testing", "{{appVersion}}": "1.2.3"}, tmpl.Placeholders())
}

func TestTemplate_UserPlaceholderOverridesBuiltIn(t *testing.T) {
	tmpl := NewTemplate("{{eventName}}|{{args}}", map[string]string{"{{eventName}}": "redacted"})

	assert.Equal(t, "redacted|[]", tmpl.Format(event("secret.event"), time.UTC))
}

func TestTemplate_SinglePassSubstitution(t *testing.T) {
	t.Run("replacement_values_are_not_rescanned", func(t *testing.T) {
		tmpl := NewTemplate("{{custom}}", map[string]string{"custom": "{{eventName}}"})

		assert.Equal(t, "{{eventName}}", tmpl.Format(event("e"), time.UTC))
	})

	t.Run("event_data_is_not_rescanned", func(t *testing.T) {
		line := NewTemplate("{{args}} {{eventName}}", nil).Format(event("{{args}}", "{{eventName}}"), time.UTC)

		assert.Equal(t, `["{{eventName}}"] {{args}}`, line)
	})
}

func TestTemplate_OverlappingTokens(t *testing.T) {
	tmpl := NewTemplate("{{a}} {{ab}}", map[string]string{"a": "1", "ab": "2"})

	assert.Equal(t, "1 2", tmpl.Format(event("e"), time.UTC))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Line1\nLine2", NormalizeText(`Line1\nLine2`))
	assert.Equal(t, "Line1\nLine2", NewTemplate(`Line1\nLine2`, nil).Text())
	assert.Equal(t, "a\nb", Default().WithText(`a\nb`).Text())
}

func TestTemplate_WithPlaceholdersDoesNotMutateOriginal(t *testing.T) {
	original := NewTemplate("{{x}}", map[string]string{"x": "1"})
	changed := original.WithPlaceholders(map[string]string{"x": "2"})

	assert.Equal(t, "1", original.Format(event("e"), time.UTC))
	assert.Equal(t, "2", changed.Format(event("e"), time.UTC))
}

func TestTemplate_TimestampLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	line := NewTemplate("{{timestamp}}", nil).Format(event("e"), loc)

	assert.Equal(t, "2024-05-17 11:03:07", line)
}

func TestTemplate_ZeroTimestampUsesNow(t *testing.T) {
	e := eventlog.Event{Name: "e"}

	line := NewTemplate("{{timestamp}}", nil).Format(e, time.UTC)

	parsed, err := time.ParseInLocation(TimestampLayout, line, time.UTC)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 5*time.Second)
}

func TestEncodeArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"nil", nil, "[]"},
		{"empty", []any{}, "[]"},
		{"scalars", []any{"x", 1, 2.5, true, nil}, `["x",1,2.5,true,null]`},
		{"large_int_stays_integral", []any{123456789}, `[123456789]`},
		{"unescaped_slashes", []any{"/var/log/app"}, `["/var/log/app"]`},
		{"unescaped_unicode", []any{"café ☕"}, `["café ☕"]`},
		{"unescaped_html", []any{"<a>&"}, `["<a>&"]`},
		{"composite", []any{map[string]any{"a": []int{1, 2}}}, `[{"a":[1,2]}]`},
		{"error_as_message", []any{errors.New("boom")}, `["boom"]`},
		{"unsupported_value", []any{"ok", make(chan int)}, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeArgs(tt.args)
			if tt.name == "unsupported_value" {
				assert.Regexp(t, `^\["ok","0x[0-9a-f]+"\]$`, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
