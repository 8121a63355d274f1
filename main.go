package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/goalkeep/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "goalkeep: %v\n", err)
		os.Exit(1)
	}
}
