package keytools

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/nyaruka/ezconf"
	"github.com/pkg/errors"
	validator "gopkg.in/go-playground/validator.v9"
)

var validate = validator.New()

// Config is our top level configuration object, shared by all the job binaries
type Config struct {
	AWSProfile         string `help:"the named AWS credentials profile to use when no access key is set"`
	AWSRegion          string `help:"the AWS region of the keys table"            validate:"required"`
	AWSAccessKeyID     string `help:"the access key id to use instead of the named profile"`
	AWSSecretAccessKey string `help:"the secret access key to use instead of the named profile"`
	DynamoEndpoint     string `help:"optional DynamoDB endpoint override, e.g. for a local DynamoDB" validate:"omitempty,url"`
	S3Endpoint         string `help:"optional S3 endpoint override, e.g. for minio"                  validate:"omitempty,url"`

	KeysTable        string `help:"the DynamoDB table holding API keys"                                   validate:"required"`
	BackfillCutoff   int64  `help:"epoch millis below which a createdAt is treated as being in seconds" validate:"min=1"`
	BackfillPageSize int    `help:"the number of items to scan per page"                                validate:"min=1,max=1000"`
	BackfillMaxPages int    `help:"the maximum number of pages to scan (0 means all pages)"             validate:"min=0"`
	BackfillDryRun   bool   `help:"whether to only log the updates the backfill would make"`

	GatewayURL         string `help:"the base URL of the gateway admin API"                 validate:"required,url"`
	PluginsPageSize    int    `help:"the page size used when listing plugins"               validate:"min=1,max=1000"`
	PluginName         string `help:"the plugin type which will be migrated"                validate:"required"`
	PluginsTargetPath  string `help:"the gateway path that matching plugins are copied to" validate:"required,startswith=/"`
	HTTPTimeoutSeconds int    `help:"the timeout for HTTP requests in seconds (0 means no timeout)" validate:"min=0"`

	BonoboURL        string `help:"the base URL of Bonobo that Mashery keys are uploaded to" validate:"required,url"`
	MasheryKeysFile  string `help:"path or s3:// URL of the Mashery keys export"              validate:"required"`
	MasheryBatchSize int    `help:"the number of users uploaded to Bonobo per request"       validate:"min=1"`
	MasheryDryRun    bool   `help:"whether to only log the users that would be uploaded"`

	SentryDSN string `help:"the DSN used for logging errors to Sentry"`
	LogLevel  string `help:"the logging level to use"`
	Version   string `help:"the version reported in logs and HTTP user agents"`
}

// NewConfig returns a new default configuration object
func NewConfig() *Config {
	return &Config{
		AWSProfile: "capi",
		AWSRegion:  "eu-west-1",

		KeysTable:        "bonobo-CODE-keys",
		BackfillCutoff:   1000000000000,
		BackfillPageSize: 25,
		BackfillMaxPages: 1,

		GatewayURL:         "http://localhost:8001",
		PluginsPageSize:    10,
		PluginName:         "rate-limiting",
		PluginsTargetPath:  "/services/internal/plugins",
		HTTPTimeoutSeconds: 30,

		BonoboURL:        "http://localhost:9000",
		MasheryKeysFile:  "mashery-keys.txt",
		MasheryBatchSize: 100,

		LogLevel: "info",
		Version:  "Dev",
	}
}

// LoadConfig loads our configuration from the passed in filename
func LoadConfig(filename string) *Config {
	config := NewConfig()
	loader := ezconf.NewLoader(
		config,
		"keytools", "Keytools - batch jobs for the keys table, gateway and Bonobo",
		[]string{filename},
	)

	loader.MustLoad()
	return config
}

// Validate validates the config
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := c.ParseLogLevel(); err != nil {
		return errors.Wrap(err, "unable to parse 'LogLevel'")
	}

	if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		return errors.New("'AWSAccessKeyID' and 'AWSSecretAccessKey' must be set together")
	}

	if strings.HasPrefix(c.MasheryKeysFile, "s3://") {
		if _, _, err := ParseS3URL(c.MasheryKeysFile); err != nil {
			return errors.Wrap(err, "unable to parse 'MasheryKeysFile'")
		}
	}
	return nil
}

// ParseLogLevel parses our log level
func (c *Config) ParseLogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// ParseS3URL splits a URL like s3://bucket/path/to/key into its bucket and key
func ParseS3URL(s string) (string, string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", errors.Errorf("'%s' is not an s3:// URL", s)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Errorf("'%s' must include a bucket and a key", s)
	}
	return u.Host, key, nil
}
