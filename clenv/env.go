// Package clenv loads network spec environment files for local synthesis.
package clenv

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// GitRoot returns the top-level directory of the git repository the process runs in.
func GitRoot(ctx context.Context) (string, error) {
	var errb, outb bytes.Buffer

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Stderr = &errb
	cmd.Stdout = &outb

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run git rev-parse --show-toplevel: %w: %v", err, errb.String())
	}

	return strings.TrimSpace(outb.String()), nil
}

// Load reads the named env files relative to dir. Variables that are already set in the
// process environment are not overwritten.
func Load(dir string, names ...string) error {
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}

	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	return nil
}

// LoadFromGitRoot loads environment variables from a file in the root of
// the git repository.
func LoadFromGitRoot(ctx context.Context, names ...string) error {
	root, err := GitRoot(ctx)
	if err != nil {
		return err
	}

	return Load(root, names...)
}
