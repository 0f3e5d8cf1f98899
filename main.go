package main

import (
	"os"

	"github.com/agrobench/agrobench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
