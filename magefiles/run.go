//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed with validation layers and shader hot reload.
func (Run) Debug() error {
	if err := buildShaders(); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("run", ".", "-config", "penumbra.debug.toml"), withStream())
	return err
}

// Runs the tests of every package that does not need a GPU.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./engine/..."), withStream())
	return err
}
