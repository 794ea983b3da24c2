package defaults

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissions_Unique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, p := range Permissions() {
		assert.False(t, seen[p], "duplicate permission %s", p)
		seen[p] = true
		assert.Contains(t, p, ".")
	}
}

func TestPolicies(t *testing.T) {
	t.Parallel()

	lines := Policies()
	assert.Equal(t, "p, role:admin, *, *, *", lines[0])
	assert.Contains(t, lines, "p, role:readonly, *, memberattributesettings, read")
	assert.Contains(t, lines, "p, role:readonly, *, member, autocomplete")
	assert.NotContains(t, lines, "p, role:readonly, *, member, create")
}

// The shipped policy file must grant at least the built-in role policies.
func TestPolicies_ShippedPolicyFile(t *testing.T) {
	t.Parallel()

	f, err := os.Open(filepath.Join("..", "..", "config", "access", "policy.csv"))
	require.NoError(t, err)
	defer f.Close()

	shipped := map[string]bool{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			shipped[line] = true
		}
	}
	require.NoError(t, s.Err())
	for _, line := range Policies() {
		assert.True(t, shipped[line], "policy.csv is missing %q", line)
	}
}
