package main

import (
	"os"

	"horse.fit/mentions/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
