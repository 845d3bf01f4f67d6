package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bonobo-ops/keytools"
	"github.com/bonobo-ops/keytools/utils"
)

// Runtime holds the clients a job needs. It is built once per run and passed to the job. AWS config is
// only loaded when a job first asks for an AWS client, so jobs which only talk HTTP never need
// credentials.
type Runtime struct {
	Config *keytools.Config
	HTTP   *http.Client

	awsCfg *aws.Config
	dynamo *dynamodb.Client
	s3     *s3.Client
}

func NewRuntime(ctx context.Context, cfg *keytools.Config) (*Runtime, error) {
	return &Runtime{
		Config: cfg,
		HTTP:   utils.NewHTTPClient(time.Duration(cfg.HTTPTimeoutSeconds) * time.Second),
	}, nil
}

// Dynamo returns the DynamoDB client, loading AWS config if needed
func (rt *Runtime) Dynamo(ctx context.Context) (*dynamodb.Client, error) {
	if rt.dynamo == nil {
		awsCfg, err := rt.loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}

		rt.dynamo = dynamodb.NewFromConfig(*awsCfg, func(o *dynamodb.Options) {
			if rt.Config.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(rt.Config.DynamoEndpoint)
			}
		})
	}
	return rt.dynamo, nil
}

// S3 returns the S3 client, loading AWS config if needed
func (rt *Runtime) S3(ctx context.Context) (*s3.Client, error) {
	if rt.s3 == nil {
		awsCfg, err := rt.loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}

		rt.s3 = s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			if rt.Config.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(rt.Config.S3Endpoint)
				o.UsePathStyle = true // minio and friends don't do virtual hosts
			}
		})
	}
	return rt.s3, nil
}

// static keys win over the named profile, which in turn wins over the default chain
func (rt *Runtime) loadAWSConfig(ctx context.Context) (*aws.Config, error) {
	if rt.awsCfg != nil {
		return rt.awsCfg, nil
	}

	cfg := rt.Config
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	} else if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	rt.awsCfg = &awsCfg
	return rt.awsCfg, nil
}
