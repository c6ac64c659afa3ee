package main

import (
	"os"

	"github.com/todd-reagan/nile-collector/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
