package main

import (
	"os"

	"github.com/Patches72790/grox/cmd"
)

func main() {
	if err := cmd.App().Execute(); err != nil {
		os.Exit(1)
	}
}
