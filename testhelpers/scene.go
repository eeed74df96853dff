package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
)

// Scene represents a test scene with a temporary directory and Git repository.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and Git repository.
// It automatically handles cleanup using t.Cleanup().
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "deployit-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		if os.Getenv("DEBUG") == "" {
			_ = os.RemoveAll(tmpDir)
		}
	})

	repoDir := filepath.Join(tmpDir, "app")
	repo, err := NewGitRepo(repoDir)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{
		Dir:  tmpDir,
		Repo: repo,
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return scene
}

// BasicSceneSetup is a setup function that creates a basic scene with a single commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}

// LaravelSceneSetup commits the dependency manifests of a typical Laravel application.
func LaravelSceneSetup(scene *Scene) error {
	return scene.Repo.CommitFiles("initial release", map[string]string{
		"composer.json":        `{"require": {}}`,
		"composer.lock":        `{}`,
		"package.json":         `{"dependencies": {}}`,
		"config/app.php":       "<?php return [];\n",
		"public/assets/app.js": "console.log('v1');\n",
	})
}

// DeployTarget is a clone of the scene repository that plays the role of a
// deployed checkout pulling from origin.
type DeployTarget struct {
	Origin *GitRepo
	Target *GitRepo
}

// NewDeployTarget pushes the scene repository to a bare remote and clones it as a deployment checkout.
func NewDeployTarget(t *testing.T, scene *Scene) *DeployTarget {
	t.Helper()

	bare, err := scene.Repo.CreateBareRemote("origin")
	if err != nil {
		t.Fatalf("Failed to create remote: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(bare) })

	if err := scene.Repo.PushBranch("origin", "main"); err != nil {
		t.Fatalf("Failed to push: %v", err)
	}

	target, err := CloneGitRepo(bare, filepath.Join(scene.Dir, "deploy"))
	if err != nil {
		t.Fatalf("Failed to clone: %v", err)
	}

	return &DeployTarget{Origin: scene.Repo, Target: target}
}
