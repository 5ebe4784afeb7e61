// Package main provides the entry point for the distroclone CLI tool.
package main

import (
	"github.com/rkent/distroclone/internal/cmd"
)

func main() {
	cmd.Execute()
}
