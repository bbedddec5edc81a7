package main

import (
	"os"

	"github.com/conformadev/conforma/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
