package coverage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	beakererrors "github.com/conneroisu/beaker/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnvRunner records in-environment invocations
type fakeEnvRunner struct {
	calls   []string
	failOn  string
	outputs map[string]string
}

func (f *fakeEnvRunner) Run(ctx context.Context, env, command string, args ...string) ([]byte, error) {
	line := env + " " + command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	f.calls = append(f.calls, line)

	if f.failOn != "" && strings.Contains(line, f.failOn) {
		return nil, os.ErrPermission
	}
	if out, ok := f.outputs[command]; ok {
		return []byte(out), nil
	}
	return nil, nil
}

func TestToolCombineReportXML(t *testing.T) {
	runner := &fakeEnvRunner{outputs: map[string]string{
		"coverage": "Name  Stmts  Miss  Cover\nchemistry/structure.py  900  120  87%\n",
	}}
	tool := NewTool("beaker-py3.6", runner, nil)
	ctx := context.Background()

	require.NoError(t, tool.Combine(ctx))

	report, err := tool.Report(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "chemistry/structure.py")

	require.NoError(t, tool.XML(ctx, "coverage.xml"))

	require.Len(t, runner.calls, 3)
	assert.Equal(t, "beaker-py3.6 coverage combine", runner.calls[0])
	assert.Equal(t, "beaker-py3.6 coverage report -m", runner.calls[1])
	assert.Equal(t, "beaker-py3.6 coverage xml -o coverage.xml", runner.calls[2])
}

func TestToolCombineFailure(t *testing.T) {
	runner := &fakeEnvRunner{failOn: "combine"}
	tool := NewTool("env", runner, nil)

	err := tool.Combine(context.Background())
	require.Error(t, err)
	assert.True(t, beakererrors.IsType(err, beakererrors.ErrorTypeCoverage))
}

func TestCheckArtifact(t *testing.T) {
	dir := t.TempDir()

	t.Run("well-formed", func(t *testing.T) {
		path := filepath.Join(dir, "coverage.xml")
		xml := `<?xml version="1.0"?><coverage line-rate="0.87"><packages/></coverage>`
		require.NoError(t, os.WriteFile(path, []byte(xml), 0644))
		assert.NoError(t, CheckArtifact(path))
	})

	t.Run("missing", func(t *testing.T) {
		err := CheckArtifact(filepath.Join(dir, "nope.xml"))
		require.Error(t, err)
		assert.True(t, beakererrors.IsType(err, beakererrors.ErrorTypeCoverage))
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "broken.xml")
		require.NoError(t, os.WriteFile(path, []byte("<coverage><unclosed>"), 0644))
		assert.Error(t, CheckArtifact(path))
	})
}

func TestReadCredentials(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, ".coveralls.yml")
		content := "repo_token: abcdef123456\nservice_name: travis-ci\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		creds, err := ReadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "abcdef123456", creds.RepoToken)
		assert.Equal(t, "travis-ci", creds.ServiceName)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadCredentials(filepath.Join(dir, "absent.yml"))
		require.Error(t, err)
		assert.True(t, beakererrors.IsType(err, beakererrors.ErrorTypeUpload))
	})

	t.Run("empty token", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yml")
		require.NoError(t, os.WriteFile(path, []byte("service_name: travis-ci\n"), 0600))

		_, err := ReadCredentials(path)
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte(":\n\t-bad"), 0600))

		_, err := ReadCredentials(path)
		require.Error(t, err)
	})
}

func TestUploader(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, ".coveralls.yml")
	require.NoError(t, os.WriteFile(credsPath, []byte("repo_token: tok123\n"), 0600))

	t.Run("successful upload", func(t *testing.T) {
		runner := &fakeEnvRunner{}
		uploader := NewUploader("beaker-py3.6", credsPath, runner, nil)

		require.NoError(t, uploader.Upload(context.Background()))
		require.Len(t, runner.calls, 1)
		assert.Equal(t, "beaker-py3.6 coveralls", runner.calls[0])
	})

	t.Run("missing credentials skips invocation", func(t *testing.T) {
		runner := &fakeEnvRunner{}
		uploader := NewUploader("beaker-py3.6", filepath.Join(dir, "absent.yml"), runner, nil)

		err := uploader.Upload(context.Background())
		require.Error(t, err)
		assert.Empty(t, runner.calls)
	})

	t.Run("upload client failure", func(t *testing.T) {
		runner := &fakeEnvRunner{failOn: "coveralls"}
		uploader := NewUploader("beaker-py3.6", credsPath, runner, nil)

		err := uploader.Upload(context.Background())
		require.Error(t, err)
		assert.True(t, beakererrors.IsType(err, beakererrors.ErrorTypeUpload))
	})
}
