package coverage

import (
	"context"
	"fmt"
	"os"

	beakererrors "github.com/conneroisu/beaker/internal/errors"
	"github.com/conneroisu/beaker/internal/logging"
	"gopkg.in/yaml.v2"
)

// Credentials holds the coverage service credentials read from the
// credentials YAML file (typically .coveralls.yml). The file is read, never
// written, by the pipeline.
type Credentials struct {
	RepoToken   string `yaml:"repo_token"`
	ServiceName string `yaml:"service_name"`
}

// ReadCredentials parses the credentials file.
func ReadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, beakererrors.NewUploadError("CREDENTIALS_MISSING",
			fmt.Sprintf("reading credentials file %s", path)).WithCause(err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, beakererrors.NewUploadError("CREDENTIALS_MALFORMED",
			fmt.Sprintf("parsing credentials file %s", path)).WithCause(err)
	}

	if creds.RepoToken == "" {
		return nil, beakererrors.NewUploadError("CREDENTIALS_EMPTY",
			fmt.Sprintf("credentials file %s has no repo_token", path))
	}

	return &creds, nil
}

// Uploader sends the combined coverage data to the hosted coverage service
// through its upload client, which reads the credentials file itself.
type Uploader struct {
	env             string
	credentialsFile string
	runner          EnvRunner
	logger          logging.Logger
}

// NewUploader creates an uploader bound to the environment's upload client.
func NewUploader(env, credentialsFile string, runner EnvRunner, logger logging.Logger) *Uploader {
	return &Uploader{
		env:             env,
		credentialsFile: credentialsFile,
		runner:          runner,
		logger:          logger,
	}
}

// Upload verifies credentials exist and invokes the upload client. The
// local report artifacts are already on disk by the time this runs, so an
// upload failure loses nothing but the hosted result.
func (u *Uploader) Upload(ctx context.Context) error {
	creds, err := ReadCredentials(u.credentialsFile)
	if err != nil {
		return err
	}

	if u.logger != nil {
		u.logger.Info(ctx, "uploading coverage", "service", creds.ServiceName)
	}

	output, err := u.runner.Run(ctx, u.env, "coveralls")
	if err != nil {
		return beakererrors.NewUploadError("UPLOAD_FAILED",
			fmt.Sprintf("coverage upload: %s", logging.SanitizeForLog(string(output)))).
			WithCause(err)
	}

	return nil
}
