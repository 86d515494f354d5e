package main

import "github.com/ce-fello/taxonomy-buddy/src/internal/cli"

// Set by ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
