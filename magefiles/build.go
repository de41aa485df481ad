//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const (
	shaderSourceDir = "shaders"
	shaderOutputDir = "data/shaders"
)

var shaderStages = map[string]bool{
	".vert": true,
	".frag": true,
	".comp": true,
}

type Build mg.Namespace

// Compiles every GLSL shader under shaders/ to SPIR-V under data/shaders/,
// keeping the directory layout. Up to date binaries are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the testbed binary. Pass RELEASE=1 to drop the debug checks.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	args := []string{"build", "-o", "bin/penumbra"}
	if os.Getenv("RELEASE") != "" {
		args = append(args, "-tags", "release")
	}
	_, err := executeCmd("go", withArgs(append(args, ".")...), withEnv("CGO_ENABLED", "1"), withStream())
	return err
}

func buildShaders() error {
	return filepath.Walk(shaderSourceDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !shaderStages[filepath.Ext(path)] {
			return nil
		}
		rel, err := filepath.Rel(shaderSourceDir, path)
		if err != nil {
			return err
		}
		out := filepath.Join(shaderOutputDir, rel+".spv")
		// Includes are shared, so any change under include/ rebuilds every stage.
		stale, err := target.Dir(out, path, filepath.Join(shaderSourceDir, "include"))
		if err != nil {
			return err
		}
		if !stale {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		args := []string{path, "-o", out, "-I", filepath.Join(shaderSourceDir, "include")}
		if _, err := executeCmd("glslc", withArgs(args...)); err != nil {
			return fmt.Errorf("failed to compile %s: %w", strings.TrimPrefix(path, shaderSourceDir+"/"), err)
		}
		return nil
	})
}

