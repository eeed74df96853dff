package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	sharedBinaryPath string
	binaryOnce       sync.Once
	binaryErr        error
)

// DeployitBinary returns the path to a deployit binary built once per test
// process, failing the test if the build failed.
func DeployitBinary(t *testing.T) string {
	t.Helper()
	binaryOnce.Do(func() {
		sharedBinaryPath, binaryErr = buildBinary()
	})
	if binaryErr != nil {
		t.Fatalf("failed to build deployit binary: %v", binaryErr)
	}
	return sharedBinaryPath
}

// buildBinary builds ./cmd/deployit into a temp directory and returns its path
func buildBinary() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	moduleRoot := findModuleRoot(wd)
	if moduleRoot == "" {
		return "", fmt.Errorf("could not find module root (go.mod) starting from %s", wd)
	}

	tmpDir, err := os.MkdirTemp("", "deployit-test-binary-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	binaryPath := filepath.Join(tmpDir, "deployit")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/deployit")
	cmd.Dir = moduleRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(tmpDir) // Ignore cleanup errors
		return "", fmt.Errorf("failed to build: %s: %w", string(output), err)
	}

	return binaryPath, nil
}

// findModuleRoot walks up the directory tree from startDir to find the module root
// (directory containing go.mod file).
func findModuleRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
