package main

import (
	"os"

	"horse.fit/fightdesk/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
