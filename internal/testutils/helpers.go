package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/yax/pkg/domain"
)

// WriteManifest writes content to name inside a fresh temp directory.
// It returns the absolute path and fails the test immediately on error.
func WriteManifest(t *testing.T, name, content string) string {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join(t.TempDir(), name))
	require.NoError(t, err, "Failed to get absolute path for temp dir")
	require.NoError(t, os.WriteFile(absPath, []byte(content), 0o644), "Failed to write manifest")
	return absPath
}

// Wait waits for task with a two second deadline.
func Wait(t *testing.T, task *domain.Task) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return task.Wait(ctx)
}
