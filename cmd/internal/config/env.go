package config

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const envVarsPrefix = "/ephemchat/prod/"

// LoadEnv exports environment variables before flags are parsed: from AWS
// SSM Parameter Store in production, from an optional .env file otherwise.
func LoadEnv(ctx context.Context) error {
	if os.Getenv("GO_ENV") == "production" {
		return loadProdEnv(ctx)
	}

	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("no .env file found, using process environment")
		return nil
	}
	return err
}

func loadProdEnv(ctx context.Context) error {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return err
	}

	client := ssm.NewFromConfig(cfg)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	prefixLength := len(envVarsPrefix)
	var loaded int
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}

		// Export vars
		for _, param := range out.Parameters {
			key := (*param.Name)[prefixLength:]
			if err := os.Setenv(key, *param.Value); err != nil {
				return err
			}
			loaded++
		}
	}
	log.Debugf("loaded %d prod environment variables", loaded)
	return nil
}
