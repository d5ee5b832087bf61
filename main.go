package main

import (
	"os"

	"github.com/conneroisu/binserve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
