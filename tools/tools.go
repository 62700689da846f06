//go:build tools
// +build tools

// Package tools pins the versions of the development commands used by
// go:generate and the hot-reload workflow.
package tools

import (
	_ "github.com/air-verse/air"
	_ "github.com/google/wire/cmd/wire"
	_ "github.com/swaggo/swag/cmd/swag"
	_ "go.uber.org/mock/mockgen"
)
