package main

import (
	"os"

	"github.com/akbargherbal/gemini-fusion/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
