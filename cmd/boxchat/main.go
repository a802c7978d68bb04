package main

import (
	"os"

	"boxchat/cmd/boxchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
