package keytools_test

import (
	"log/slog"
	"testing"

	"github.com/bonobo-ops/keytools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := keytools.NewConfig()
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "capi", cfg.AWSProfile)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "bonobo-CODE-keys", cfg.KeysTable)
	assert.Equal(t, int64(1000000000000), cfg.BackfillCutoff)
	assert.Equal(t, 25, cfg.BackfillPageSize)
	assert.Equal(t, "rate-limiting", cfg.PluginName)

	level, err := cfg.ParseLogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestConfigValidate(t *testing.T) {
	tcs := []struct {
		modify        func(*keytools.Config)
		expectedError string
	}{
		{func(c *keytools.Config) { c.GatewayURL = ":foo" }, "Field validation for 'GatewayURL' failed on the 'url' tag"},
		{func(c *keytools.Config) { c.BonoboURL = "" }, "Field validation for 'BonoboURL' failed on the 'required' tag"},
		{func(c *keytools.Config) { c.KeysTable = "" }, "Field validation for 'KeysTable' failed on the 'required' tag"},
		{func(c *keytools.Config) { c.BackfillPageSize = 0 }, "Field validation for 'BackfillPageSize' failed on the 'min' tag"},
		{func(c *keytools.Config) { c.BackfillMaxPages = -1 }, "Field validation for 'BackfillMaxPages' failed on the 'min' tag"},
		{func(c *keytools.Config) { c.PluginsTargetPath = "services/internal" }, "Field validation for 'PluginsTargetPath' failed on the 'startswith' tag"},
		{func(c *keytools.Config) { c.DynamoEndpoint = "localhost" }, "Field validation for 'DynamoEndpoint' failed on the 'url' tag"},
		{func(c *keytools.Config) { c.LogLevel = "loud" }, "unable to parse 'LogLevel'"},
		{func(c *keytools.Config) { c.AWSAccessKeyID = "root" }, "'AWSAccessKeyID' and 'AWSSecretAccessKey' must be set together"},
		{func(c *keytools.Config) { c.MasheryKeysFile = "s3://bucket" }, "unable to parse 'MasheryKeysFile'"},
	}

	for _, tc := range tcs {
		cfg := keytools.NewConfig()
		tc.modify(cfg)

		err := cfg.Validate()
		if assert.Error(t, err, "expected error for config %v", cfg) {
			assert.Contains(t, err.Error(), tc.expectedError, "error mismatch for config %v", cfg)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := keytools.ParseS3URL("s3://exports/mashery/keys.txt")
	assert.NoError(t, err)
	assert.Equal(t, "exports", bucket)
	assert.Equal(t, "mashery/keys.txt", key)

	_, _, err = keytools.ParseS3URL("https://exports/keys.txt")
	assert.EqualError(t, err, "'https://exports/keys.txt' is not an s3:// URL")

	_, _, err = keytools.ParseS3URL("s3://exports/")
	assert.EqualError(t, err, "'s3://exports/' must include a bucket and a key")
}
