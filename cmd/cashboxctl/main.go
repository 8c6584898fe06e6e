package main

import (
	"os"

	"cashbox/cmd/cashboxctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
