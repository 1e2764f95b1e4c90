package main

import (
	"fmt"
	"os"

	"airsense-go/cmd/sgp41d/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
