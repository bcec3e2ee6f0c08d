package main

import (
	"os"

	"github.com/amtly/amtly/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
