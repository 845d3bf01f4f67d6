package testsuite

import (
	"log/slog"
	"os"
	"path"

	"github.com/bonobo-ops/keytools"
)

// Config returns a config pointed at local services with static credentials, so nothing depends on
// the machine's AWS profiles
func Config() *keytools.Config {
	cfg := keytools.NewConfig()
	cfg.AWSProfile = ""
	cfg.AWSAccessKeyID = "root"
	cfg.AWSSecretAccessKey = "tembatemba"
	cfg.DynamoEndpoint = "http://localhost:6000"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.KeysTable = "Test-keys"
	cfg.MasheryKeysFile = AbsPath("./testsuite/testdata/mashery-keys.txt")

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	return cfg
}

// AbsPath converts a project root relative path to an absolute path usable in any test. This is needed
// because go tests are run with a working directory set to the package being tested.
func AbsPath(p string) string {
	// start in working directory and go up until we are in a directory containing go.mod
	dir, _ := os.Getwd()
	for dir != "/" {
		if _, err := os.Stat(path.Join(dir, "go.mod")); err == nil {
			break
		}
		dir = path.Dir(dir)
	}
	return path.Join(dir, p)
}
