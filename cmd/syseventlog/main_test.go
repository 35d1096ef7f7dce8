package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_FILE_PATH", "")
	t.Setenv("CUSTOM_LOG_TEMPLATE", "")
	t.Setenv("CUSTOM_LOG_PLACEHOLDERS", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, "syseventlog", cmd.Use)
	for _, name := range []string{"emit", "pipe", "config"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"path", "template", "placeholder", "dir", "sync", "verbose", "stats"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestEmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	out, err := execute(t, "", "emit", "--path", path, "user.login", "alice", "42", `{"ip":"10.0.0.1"}`)
	require.NoError(t, err)

	assert.Contains(t, out, "Wrote user.login to "+path)
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] Event: user\.login; Args: \["alice",42,\{"ip":"10\.0\.0\.1"\}\]$`, lines[0])
}

func TestEmit_TemplateAndPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	_, err := execute(t, "",
		"emit", "--path", path,
		"--template", `{{env}} {{eventName}} {{region}}\n`,
		"--placeholder", "env=prod",
		"--placeholder", "{{region}}=eu-west-1",
		"cache.cleared")
	require.NoError(t, err)

	assert.Equal(t, []string{"prod cache.cleared eu-west-1"}, readLines(t, path))
}

func TestEmit_InvalidPlaceholder(t *testing.T) {
	_, err := execute(t, "", "emit", "--path", filepath.Join(t.TempDir(), "x.log"), "--placeholder", "novalue", "e")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestEmit_RequiresName(t *testing.T) {
	_, err := execute(t, "", "emit")

	assert.Error(t, err)
}

func TestEmit_Stats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	out, err := execute(t, "", "emit", "--stats", "--path", path, "e")
	require.NoError(t, err)

	assert.Contains(t, out, "Event log statistics:")
	assert.Regexp(t, `sysevents_events_recorded_total\s+1`, out)
	assert.Regexp(t, `sysevents_lines_written_total\s+1`, out)
}

func TestPipe_AttachAfterAndWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	var in strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&in, "{\"event\":\"e%02d\",\"args\":[%d]}\n", i, i)
		if i == 5 {
			in.WriteString("\n")
		}
	}

	out, err := execute(t, in.String(),
		"pipe", "--path", path, "--template", `{{eventName}}\n`,
		"--attach-after", "5", "--workers", "4")
	require.NoError(t, err)

	assert.Contains(t, out, "Fired 40 events (5 before attach)")

	lines := readLines(t, path)
	require.Len(t, lines, 40)
	assert.Equal(t, []string{"e00", "e01", "e02", "e03", "e04"}, lines[:5])

	sorted := append([]string(nil), lines...)
	sort.Strings(sorted)
	for i, name := range sorted {
		assert.Equal(t, fmt.Sprintf("e%02d", i), name)
	}
}

func TestPipe_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	in := "{\"event\":\"ok\"}\n{\"args\":[1]}\n"

	_, err := execute(t, in, "pipe", "--path", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestPipe_InvalidWorkers(t *testing.T) {
	_, err := execute(t, "", "pipe", "--workers", "0")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--workers")
}

func TestConfig_EnvAndFlags(t *testing.T) {
	dir := t.TempDir()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	t.Setenv("LOG_FILE_PATH", "")
	t.Setenv("CUSTOM_LOG_TEMPLATE", `{{eventName}} {{env}}\n`)
	t.Setenv("CUSTOM_LOG_PLACEHOLDERS", `{"env":"staging","{{team}}":"core"}`)
	cmd.SetArgs([]string{"config", "--dir", dir, "--placeholder", "env=prod"})

	require.NoError(t, cmd.Execute())

	var got resolvedConfig
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Daily)
	assert.Equal(t, filepath.Join(dir, "logs"), filepath.Dir(got.Path))
	assert.True(t, strings.HasSuffix(got.Path, "-system-events.log"))
	assert.Equal(t, "{{eventName}} {{env}}\n", got.Template)
	assert.Equal(t, map[string]string{"{{env}}": "prod", "{{team}}": "core"}, got.Placeholders)
}

func TestConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explicit.log")

	out, err := execute(t, "", "config", "--path", path)
	require.NoError(t, err)

	var got resolvedConfig
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, path, got.Path)
	assert.False(t, got.Daily)
	assert.Equal(t, "[{{timestamp}}] Event: {{eventName}}; Args: {{args}}\n", got.Template)
	assert.Empty(t, got.Placeholders)
	assert.NoFileExists(t, path)
}

func TestDecodeArgs(t *testing.T) {
	got := decodeArgs([]string{"plain", "42", `{"a":1}`, "true", "1 2", `"quoted"`})

	require.Len(t, got, 6)
	assert.Equal(t, "plain", got[0])
	assert.Equal(t, json.Number("42"), got[1])
	assert.Equal(t, map[string]any{"a": json.Number("1")}, got[2])
	assert.Equal(t, true, got[3])
	assert.Equal(t, "1 2", got[4])
	assert.Equal(t, "quoted", got[5])
}
