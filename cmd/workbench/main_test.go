package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/skekre98/workbench/config"
	"github.com/skekre98/workbench/core"
)

func TestSetArgs(t *testing.T) {
	args, err := setArgs([]string{"host.kind=native", " app.name =demo", "empty="})
	require.NoError(t, err)
	assert.Equal(t, []string{"--host.kind=native", "--app.name=demo", "--empty="}, args)

	_, err = setArgs([]string{"novalue"})
	assert.Error(t, err)
	_, err = setArgs([]string{"=x"})
	assert.Error(t, err)
}

func TestAppConfig(t *testing.T) {
	root := config.Root{
		App:        config.AppInfo{Name: "demo", Version: "1.0.0"},
		Connection: config.ConnectionConfig{WSPath: "ws://localhost:9000", Protocols: []string{"websocket"}, Multiplex: true},
		Host:       config.HostConfig{Kind: "native", WindowID: "7"},
		Workspace: config.WorkspaceConfig{
			Dir:                  "/work",
			ExtensionCandidates:  []string{"/ext/a"},
			ExtensionDevelopment: []string{"/dev/b"},
		},
	}

	got := appConfig(root)
	assert.Equal(t, "demo", got.ApplicationName)
	assert.Equal(t, core.HostNative, got.Host)
	assert.Equal(t, "7", got.WindowID)
	assert.True(t, got.UseExperimentalMultiChannel)
	assert.Equal(t, []core.ExtensionCandidate{{Path: "/ext/a"}}, got.ExtensionCandidates)
	assert.Equal(t, []string{"/dev/b"}, got.ExtensionDevelopmentPaths)
}

func TestEffective(t *testing.T) {
	out, err := effective(config.Root{
		App:    config.AppInfo{Name: "demo"},
		Server: config.ServerConfig{Addr: ":8080", ReadTimeout: 10 * time.Second},
	})
	require.NoError(t, err)

	assert.Equal(t, "demo", out["app"].(map[string]any)["name"])
	server := out["server"].(map[string]any)
	assert.Equal(t, "10s", server["readTimeout"])
	assert.Equal(t, ":8080", server["addr"])
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "application.yaml"), []byte("app:\n  name: fromfile\nhost:\n  windowId: w9\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config-dir", dir, "--set", "app.version=2.0.0"})
	require.NoError(t, rootCmd.Execute())

	var printed map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &printed))
	app := printed["app"].(map[string]any)
	assert.Equal(t, "fromfile", app["name"])
	assert.Equal(t, "2.0.0", app["version"])
	assert.Equal(t, "w9", printed["host"].(map[string]any)["windowId"])
	assert.Equal(t, "10s", printed["server"].(map[string]any)["readTimeout"])
}
