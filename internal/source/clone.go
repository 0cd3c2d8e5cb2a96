package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"contribs/internal/core/config"
	domainerrors "contribs/internal/core/errors"
	"contribs/internal/shared/observability"
)

// Cloner makes throwaway shallow clones.
type Cloner struct {
	cfg config.Clone
}

func NewCloner(cfg config.Clone) *Cloner {
	return &Cloner{cfg: cfg}
}

// Args returns the git arguments used to clone url into dir.
func (c *Cloner) Args(url, dir string) []string {
	depth := c.cfg.Depth
	if depth < 1 {
		depth = 1
	}
	args := []string{"clone", "-q", "--depth", strconv.Itoa(depth), "--no-tags"}
	if c.cfg.BlobLimit != "" {
		args = append(args, "--filter=blob:limit="+c.cfg.BlobLimit)
	}
	return append(args, url, dir)
}

// Clone clones url into a new temporary directory and strips its .git
// directory. The caller owns the returned directory and must remove it.
func (c *Cloner) Clone(ctx context.Context, url, prefix string) (string, error) {
	dir, err := os.MkdirTemp(c.cfg.TempDir, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("create clone dir: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.cfg.GitBinary, c.Args(url, dir)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(dir)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", domainerrors.AddContext(domainerrors.Wrap(err, domainerrors.CodeInternal, "git clone "+url), domainerrors.CtxOperation, "clone")
	}
	observability.CloneDuration.Observe(time.Since(start).Seconds())

	if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("strip .git: %w", err)
	}
	return dir, nil
}
