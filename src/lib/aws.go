package lib

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// awsGetSdkClient loads the default AWS config. When AWS_IAM_ROLE_ARN is set the
// role is assumed and its temporary credentials are used instead.
func awsGetSdkClient(ctx context.Context) (*aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Error loading default config: %s\n", err.Error())
		return nil, err
	}
	iamRole := os.Getenv("AWS_IAM_ROLE_ARN")
	if iamRole == "" {
		return &cfg, nil
	}
	stsClient := sts.NewFromConfig(cfg)
	output, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(iamRole),
		RoleSessionName: aws.String("aworld-payments"),
	})
	if err != nil {
		log.Printf("Error configuring STS client: %s\n", err.Error())
		return nil, err
	}
	creds := output.Credentials
	cfg, err = config.LoadDefaultConfig(ctx, config.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(*creds.AccessKeyId, *creds.SecretAccessKey, *creds.SessionToken),
	))
	if err != nil {
		log.Printf("Error configuration: %s\n", err.Error())
		return nil, err
	}

	return &cfg, nil
}

func AWSGetSQSClient() *sqs.Client {
	cfg, err := awsGetSdkClient(context.TODO())
	if err != nil {
		log.Printf("Failed to initialize SQS client: %s\n", err.Error())
		return nil
	}
	client := sqs.NewFromConfig(*cfg)
	return client
}

func AWSGetSecretsManagerClient() *secretsmanager.Client {
	cfg, err := awsGetSdkClient(context.TODO())
	if err != nil {
		log.Printf("Failed to initialize Secrets Manager client: %s\n", err.Error())
		return nil
	}
	return secretsmanager.NewFromConfig(*cfg)
}

// GetSecretString reads the plain string value of a Secrets Manager secret.
func GetSecretString(ctx context.Context, secretID string) (string, error) {
	client := AWSGetSecretsManagerClient()
	if client == nil {
		return "", ErrAWSUnavailable
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		log.Printf("[SecretsManager] Error reading %s: %s\n", secretID, err.Error())
		return "", err
	}
	return aws.ToString(out.SecretString), nil
}
