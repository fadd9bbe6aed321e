// Command dailypostctl segments text into posts and schedules them through
// Post-Bridge from the terminal, one post per day.
//
// Usage:
//
//	dailypostctl accounts --platform all
//	dailypostctl segment --file thread.txt --max 5
//	cat thread.txt | dailypostctl schedule --account 123 --tz Europe/Berlin --time 09:00 --dry-run
//
// Configuration comes from the environment (or a .env file), the same keys
// the API server reads.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(&app{stdin: os.Stdin})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}
