package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useFileStorage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ambient.yaml")
	t.Setenv("AMBIENT_STORAGE_DRIVER", "file")
	t.Setenv("AMBIENT_STORAGE_PATH", path)
	t.Setenv("AMBIENT_LOG_LEVEL", "error")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ambientctl", cmd.Use)
	assert.Contains(t, cmd.Long, "AMBIENT_STORAGE_DRIVER")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"get", "set", "keys", "watch", "listen"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestWatchFlags(t *testing.T) {
	cmd := NewRootCommand()
	watch, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	event := watch.Flags().Lookup("event")
	require.NotNil(t, event)
	assert.Equal(t, "change", event.DefValue)
	assert.Equal(t, "expr", watch.Flags().Lookup("engine").DefValue)

	listen, _, err := cmd.Find([]string{"listen"})
	require.NoError(t, err)
	assert.Nil(t, listen.Flags().Lookup("event"))
}

func TestSetThenGet(t *testing.T) {
	path := useFileStorage(t)

	out, err := execute(t, "set", "prefs", `{"theme":"dark"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`, strings.TrimSpace(out))

	out, err = execute(t, "get", "prefs")
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`, strings.TrimSpace(out))

	out, err = execute(t, "--format", "json", "get", "prefs")
	require.NoError(t, err)
	var result entryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "prefs", result.Key)
	assert.Equal(t, map[string]any{"theme": "dark"}, result.Value)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSetPlainTextIsStoredAsString(t *testing.T) {
	useFileStorage(t)

	out, err := execute(t, "set", "greeting", "hello world")
	require.NoError(t, err)
	assert.Equal(t, `"hello world"`, strings.TrimSpace(out))
}

func TestGetReadsLegacyRawValue(t *testing.T) {
	path := useFileStorage(t)
	require.NoError(t, os.WriteFile(path, []byte("name: hello\n"), 0o644))

	out, err := execute(t, "get", "name")
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, strings.TrimSpace(out))
}

func TestGetMissingKey(t *testing.T) {
	useFileStorage(t)

	_, err := execute(t, "get", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestKeysWithNamespace(t *testing.T) {
	useFileStorage(t)
	t.Setenv("AMBIENT_NAMESPACE", "app")

	_, err := execute(t, "set", "b", "1")
	require.NoError(t, err)
	_, err = execute(t, "set", "a", "2")
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "keys")
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestInvalidFormatAndConfig(t *testing.T) {
	useFileStorage(t)

	_, err := execute(t, "--format", "xml", "keys")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	t.Setenv("AMBIENT_STORAGE_DRIVER", "redis")
	_, err = execute(t, "keys")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWatchOnceWithCondition(t *testing.T) {
	useFileStorage(t)
	dir := t.TempDir()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "json", "watch", dir, "--event", "create", "--once", "--condition", `name endsWith ".json"`})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- cmd.ExecuteContext(ctx) }()

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case err := <-errc:
			require.NoError(t, err)
			require.NoError(t, ctx.Err(), "watch did not exit on the first match")
			line := strings.SplitN(strings.TrimSpace(out.String()), "\n", 2)[0]
			var evt eventResult
			require.NoError(t, json.Unmarshal([]byte(line), &evt))
			assert.Equal(t, "create", evt.Type)
			assert.True(t, strings.HasSuffix(evt.Payload.(map[string]any)["name"].(string), ".json"))
			return
		case <-ticker.C:
			require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("skip-%d.txt", i)), nil, 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("file-%d.json", i)), nil, 0o644))
		}
	}
}

func TestWatchUnknownEngine(t *testing.T) {
	useFileStorage(t)

	_, err := execute(t, "watch", t.TempDir(), "--condition", "true", "--engine", "lua")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUsageErrorsExitWithCommandError(t *testing.T) {
	useFileStorage(t)

	cases := map[string][]string{
		"missing argument": {"get"},
		"extra argument":   {"keys", "extra"},
		"unknown flag":     {"get", "prefs", "--nope"},
		"unknown command":  {"gte", "prefs"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err), err.Error())
		})
	}
}

func TestRootWithoutArgumentsPrintsHelp(t *testing.T) {
	useFileStorage(t)

	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "ambientctl")
}

func TestWatchRejectsConditionThatDoesNotCompile(t *testing.T) {
	useFileStorage(t)

	for _, engine := range []string{"expr", "cel"} {
		t.Run(engine, func(t *testing.T) {
			_, err := execute(t, "watch", t.TempDir(), "--engine", engine, "--condition", "name >")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
	_, err := execute(t, "watch", t.TempDir(), "--engine", "cel", "--condition", "size > 10")
	require.Error(t, err, "cel checks conditions against the file event fields")
}
