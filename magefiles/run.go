//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed with the in-memory backend.
func (Run) Testbed() error {
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed against the Vulkan backend.
func (Run) Vulkan() error {
	fmt.Println("Run testbed (vulkan)...")
	if _, err := executeCmd("go", withArgs("run", "main.go", "-backend", "vulkan"), withStream()); err != nil {
		return err
	}
	return nil
}
