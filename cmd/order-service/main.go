package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/cox101/Savannah-Microservice/internal/app"
)

func main() {
	_ = godotenv.Load()

	if err := app.Run(); err != nil {
		log.Fatalf("order service failed: %v", err)
	}
}
