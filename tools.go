//go:build tools
// +build tools

// Package tools tracks tool dependencies invoked through go generate (mockgen).
package main

import (
	_ "go.uber.org/mock/mockgen"
)
