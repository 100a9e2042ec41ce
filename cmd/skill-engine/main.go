package main

import (
	"errors"
	"log"
	"os"

	"skill-engine/internal/app"
)

func main() {
	runner := app.NewAppRunner(os.Stdout)

	if err := runner.Run(os.Args[1:]); err != nil {
		log.Printf("[ERROR] %v", err)
		if errors.Is(err, app.ErrUsage) || errors.Is(err, app.ErrMissingArgs) {
			runner.Usage(os.Stderr)
		}
		os.Exit(1)
	}
}
