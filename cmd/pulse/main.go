package main

import (
	"log"

	"github.com/MrSnakeDoc/pulse/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ pulse failed to start: %v", err)
	}
}
