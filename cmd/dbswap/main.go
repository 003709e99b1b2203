// Package main provides the dbswap CLI.
package main

import "github.com/mesh-intelligence/dbswap/internal/cli"

func main() {
	cli.Execute()
}
