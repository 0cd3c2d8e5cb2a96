package source

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"contribs/internal/core/config"
	domainerrors "contribs/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloner_Args(t *testing.T) {
	c := NewCloner(config.Clone{Depth: 1, BlobLimit: "1m"})
	assert.Equal(t,
		[]string{"clone", "-q", "--depth", "1", "--no-tags", "--filter=blob:limit=1m", "https://x/r.git", "/tmp/r"},
		c.Args("https://x/r.git", "/tmp/r"))

	c = NewCloner(config.Clone{})
	assert.Equal(t,
		[]string{"clone", "-q", "--depth", "1", "--no-tags", "u", "d"},
		c.Args("u", "d"))
}

func TestCloner_FailureRemovesTempDir(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false binary not available")
	}
	tmp := t.TempDir()
	c := NewCloner(config.Clone{GitBinary: falseBin, TempDir: tmp, Timeout: 5 * time.Second})

	_, err = c.Clone(context.Background(), "https://example.invalid/r.git", "o-r")
	require.Error(t, err)
	var de *domainerrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "clone", de.Context[domainerrors.CtxOperation])

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCloner_LocalRepository(t *testing.T) {
	git, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not available")
	}

	src := t.TempDir()
	writeTree(t, src, map[string]string{"pkg/mod.py": "import os\n"})
	for _, args := range [][]string{
		{"init", "-q"},
		{"add", "."},
		{"-c", "user.name=t", "-c", "user.email=t@example.com", "commit", "-q", "-m", "init"},
	} {
		cmd := exec.Command(git, args...)
		cmd.Dir = src
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	c := NewCloner(config.Clone{GitBinary: git, Depth: 1, TempDir: t.TempDir(), Timeout: time.Minute})
	dir, err := c.Clone(context.Background(), "file://"+filepath.ToSlash(src), "local")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	data, err := os.ReadFile(filepath.Join(dir, "pkg", "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, "import os\n", string(data))

	_, err = os.Stat(filepath.Join(dir, ".git"))
	assert.True(t, os.IsNotExist(err))
}
