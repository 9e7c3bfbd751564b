// Package main provides the pantry binary.
package main

import (
	"context"
	"os"

	"github.com/mesh-intelligence/pantry/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
