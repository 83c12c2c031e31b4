//go:build !windows

package transport

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNameRejectsEmpty(t *testing.T) {
	_, err := ResolveName("", false)
	require.Error(t, err)
}

func TestResolveNameSharedVsUserSpecific(t *testing.T) {
	shared, err := ResolveName("agentcore-demo", false)
	require.NoError(t, err)
	assert.NotContains(t, shared, ".sock.")
	assert.Contains(t, shared, "agentcore-demo.sock")

	scoped, err := ResolveName("agentcore-demo", true)
	require.NoError(t, err)
	assert.Contains(t, scoped, "agentcore-demo")
	assert.NotEqual(t, shared, scoped)
}

func TestResolveNameHonorsXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/agentcore-xdg-test")

	resolved, err := ResolveName("agentcore-demo", false)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/agentcore-xdg-test/agentcore-demo.sock", resolved)
}

func TestResolveNameUserSpecificIncludesUID(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/agentcore-xdg-test")

	resolved, err := ResolveName("agentcore-demo", true)
	require.NoError(t, err)
	expected := "/tmp/agentcore-xdg-test/agentcore-demo." + strconv.Itoa(os.Getuid()) + ".sock"
	assert.Equal(t, expected, resolved)
}
