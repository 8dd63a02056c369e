package main

import (
	"os"

	"github.com/solatis/canvasagent/cmd/canvasagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
