package main

import (
	"os"

	"horse.fit/stallednews/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
