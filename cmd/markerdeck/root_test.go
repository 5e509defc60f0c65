package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["version"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "markerdeck "))
}

func TestServeRejectsBadConfigFile(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"serve", "--config", t.TempDir() + "/missing.yaml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRenderBanner(t *testing.T) {
	out := renderBanner(bannerInfo{
		Version:   "1.2.3",
		Address:   "0.0.0.0:3030",
		DataDir:   "/data",
		DBDriver:  "sqlite",
		CacheSize: 2048,
	}, false)

	assert.Contains(t, out, "MARKERDECK 1.2.3")
	assert.Contains(t, out, "http://0.0.0.0:3030")
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "2.0 kB")
}
