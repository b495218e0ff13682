package main

import (
	"context"
	"log"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"

	"serverless-user-api/cmd/api/app"
	"serverless-user-api/internal/adapter/lambda"
	"serverless-user-api/pkg/logger"
)

func main() {
	// Bootstrap logger until the application's own logger is configured.
	l, err := logger.NewWithConfig(logger.Config{
		Level:       "info",
		Format:      "json",
		OutputPath:  "stdout",
		ServiceName: "serverless-user-api",
		Environment: os.Getenv("APP_ENV"),
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	adapter := lambda.New(lambda.GinInitializer(func(ctx context.Context) (*gin.Engine, error) {
		application, err := app.New(ctx)
		if err != nil {
			return nil, err
		}
		return application.Handler(), nil
	}), l)

	awslambda.Start(adapter.Handle)
}
