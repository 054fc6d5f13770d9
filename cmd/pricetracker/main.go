package main

import (
	"pricetracker/cmd/pricetracker/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// email credentials typically live in a .env next to the binary
	godotenv.Load()

	cmd.Execute()
}
