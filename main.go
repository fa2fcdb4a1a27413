package main

import (
	"os"

	"github.com/DeepLearnPhysics/spine-prod/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
