package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/initify/giteehook/internal/app"
)

func main() {
	h, err := app.FunctionHandlerFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	lambda.Start(h.Handle)
}
