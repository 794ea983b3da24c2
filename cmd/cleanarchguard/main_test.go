package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterViolations(t *testing.T) {
	t.Parallel()

	cfg := &config{
		SharedModules:     []string{"core"},
		AllowedViolations: []string{"modules/member/services/legacy.go"},
	}
	msgs := []string{
		"you cannot import infrastructure between automation and core modules",
		"domain layer cannot import services (modules/member/services/legacy.go)",
		"domain layer cannot import infrastructure (modules/organization/domain/x.go)",
	}
	assert.Equal(t, msgs[2:], filterViolations(msgs, cfg))
	assert.Empty(t, filterViolations(nil, cfg))
}

func TestLayerAliases(t *testing.T) {
	t.Parallel()

	aliases := layerAliases(&config{})
	assert.Equal(t, cleanarch.LayerDomain, aliases["aggregates"])
	assert.Equal(t, cleanarch.LayerApplication, aliases["services"])
	assert.Equal(t, cleanarch.LayerInterfaces, aliases["controllers"])
	assert.Equal(t, cleanarch.LayerInfrastructure, aliases["persistence"])

	custom := &config{}
	custom.Aliases.Domain = []string{"model"}
	aliases = layerAliases(custom)
	assert.Equal(t, cleanarch.LayerDomain, aliases["model"])
	_, ok := aliases["aggregates"]
	assert.False(t, ok)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".gocleanarch.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nshared_modules: [core]\n"), 0o644))
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, []string{"core"}, cfg.SharedModules)

	require.NoError(t, os.WriteFile(path, []byte("version: 7\n"), 0o644))
	_, err = loadConfig(path)
	require.Error(t, err)
}
