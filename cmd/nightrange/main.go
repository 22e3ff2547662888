package main

import (
	"os"

	"github.com/nightrange/trader/cmd/nightrange/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
