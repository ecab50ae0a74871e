package ecosystem

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/ctictl/internal/models"
	"github.com/spachava753/ctictl/internal/runner/runnertest"
)

const configPath = "/work/opencti_config.yaml"

func testSettings() models.Settings {
	return models.Settings{
		ConfigPath:  configPath,
		Concurrency: 3,
		Timeout:     time.Minute,
		GitBin:      "git",
		DockerBin:   "docker",
		Project:     "opencti-ecosystem",
		LogLevel:    "info",
	}
}

// gitAndDocker fakes a clone by writing a compose descriptor into the target
// and accepts every other command.
func gitAndDocker(fs afero.Fs) runnertest.HandlerFunc {
	return func(ctx context.Context, call runnertest.Call) ([]byte, error) {
		if call.Name == "git" && call.Args[0] == "clone" {
			target := call.Args[len(call.Args)-1]
			svc := filepath.Base(target)
			content := "services:\n  main:\n    image: opencti/" + svc + "\n"
			if err := fs.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			return nil, afero.WriteFile(fs, filepath.Join(target, "docker-compose.yml"), []byte(content), 0644)
		}
		return nil, nil
	}
}

func openTest(t *testing.T, fs afero.Fs, fake *runnertest.Fake) *Ecosystem {
	t.Helper()
	eco, err := Open(context.Background(), testSettings(), Options{Fs: fs, Runner: fake})
	require.NoError(t, err)
	return eco
}

func TestOpen_CreatesDefaultConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	eco := openTest(t, fs, &runnertest.Fake{})

	exists, err := afero.Exists(fs, configPath)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "/work/opencti-ecosystem", eco.Config().InstallPath)
	assert.Equal(t, "/work/opencti-ecosystem/connectors/docker-compose.merged.yml", eco.MergedPath())

	rows := eco.List()
	require.Len(t, rows, 11)
	assert.Equal(t, "opencti", rows[0].Component.ID)
	for _, row := range rows {
		assert.True(t, row.Enabled)
		assert.False(t, row.Checkout.Present)
	}
}

func TestOpen_InvalidSettings(t *testing.T) {
	s := testSettings()
	s.Concurrency = 0
	_, err := Open(context.Background(), s, Options{Fs: afero.NewMemMapFs(), Runner: &runnertest.Fake{}})
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrConfig))
}

func TestOpen_MalformedConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, configPath, []byte("repositories: [oops"), 0644))
	_, err := Open(context.Background(), testSettings(), Options{Fs: fs, Runner: &runnertest.Fake{}})
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrConfig))
}

func TestCloneMergeStartStop(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := &runnertest.Fake{}
	fake.Handler = gitAndDocker(fs)
	eco := openTest(t, fs, fake)

	report, err := eco.Clone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, report.Total)
	assert.Equal(t, 11, report.Succeeded)
	assert.Empty(t, report.Failures())

	agg, err := eco.Merge()
	require.NoError(t, err)
	assert.Len(t, agg.Components, 7, "only connectors are staged")
	assert.Equal(t, 7, agg.Services)
	assert.Empty(t, agg.Skipped)

	first, err := afero.ReadFile(fs, eco.MergedPath())
	require.NoError(t, err)
	assert.Contains(t, string(first), "opencti-connector-mitre_main:")

	// Repeating clone and merge against unchanged inputs yields the same artifact
	again, err := eco.Clone(context.Background())
	require.NoError(t, err)
	for _, r := range again.Results {
		assert.Equal(t, models.StatusPresent, r.Status)
	}
	_, err = eco.Merge()
	require.NoError(t, err)
	second, err := afero.ReadFile(fs, eco.MergedPath())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	started, err := eco.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, started, "existing artifact is reused")
	require.NoError(t, eco.Stop(context.Background()))

	var docker []string
	for _, c := range fake.Calls() {
		if c.Name == "docker" {
			docker = append(docker, strings.Join(c.Args[len(c.Args)-2:], " "))
		}
	}
	assert.Equal(t, []string{"up -d", "/work/opencti-ecosystem/connectors/docker-compose.merged.yml down"}, docker)
}

func TestUpdate_SkipsMissingCheckouts(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := &runnertest.Fake{}
	fake.Handler = gitAndDocker(fs)
	eco := openTest(t, fs, fake)

	_, err := eco.Clone(context.Background(), "opencti", "opencti-connector-mitre")
	require.NoError(t, err)

	report, err := eco.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, "opencti", report.Results[0].Component)
	assert.Equal(t, "opencti-connector-mitre", report.Results[1].Component)

	// Explicit ids are attempted even without a checkout
	report, err = eco.Update(context.Background(), "opencti-worker")
	require.NoError(t, err)
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, models.ErrUpdate, report.Failures()[0].Error.Type)
}

func TestUnknownIDs(t *testing.T) {
	eco := openTest(t, afero.NewMemMapFs(), &runnertest.Fake{})

	_, err := eco.Clone(context.Background(), "opencti", "no-such-component")
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrConfig))

	err = eco.SetEnabled(true, "no-such-component")
	assert.True(t, models.IsType(err, models.ErrConfig))
}

func TestSetEnabled_Persists(t *testing.T) {
	fs := afero.NewMemMapFs()
	eco := openTest(t, fs, &runnertest.Fake{})

	require.NoError(t, eco.SetEnabled(false, "opencti-connector-abuseipdb", "opencti-connector-mitre"))

	reopened := openTest(t, fs, &runnertest.Fake{})
	enabled := map[string]bool{}
	for _, row := range reopened.List() {
		enabled[row.Component.ID] = row.Enabled
	}
	assert.False(t, enabled["opencti-connector-abuseipdb"])
	assert.False(t, enabled["opencti-connector-mitre"])
	assert.True(t, enabled["opencti"])

	report, err := reopened.Clone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, report.Total)
}

func TestSetEnabled_DisableDropsStagedConnector(t *testing.T) {
	fs := afero.NewMemMapFs()
	fake := &runnertest.Fake{}
	fake.Handler = gitAndDocker(fs)
	eco := openTest(t, fs, fake)

	_, err := eco.Clone(context.Background(), "opencti-connector-mitre", "opencti-connector-abuseipdb")
	require.NoError(t, err)

	require.NoError(t, eco.SetEnabled(false, "opencti-connector-mitre"))

	staged, err := afero.DirExists(fs, "/work/opencti-ecosystem/connectors/opencti-connector-mitre")
	require.NoError(t, err)
	assert.False(t, staged)
	for _, row := range eco.List() {
		if row.Component.ID == "opencti-connector-mitre" {
			assert.True(t, row.Checkout.Present, "checkout is kept")
			assert.False(t, row.Checkout.Staged)
		}
	}

	agg, err := eco.Merge()
	require.NoError(t, err)
	assert.Equal(t, []string{"opencti-connector-abuseipdb"}, agg.Components)

	// Disabling again, or disabling a platform component, has nothing to remove
	require.NoError(t, eco.SetEnabled(false, "opencti-connector-mitre", "opencti-worker"))
}

func TestStop_WithoutArtifact(t *testing.T) {
	fake := &runnertest.Fake{}
	eco := openTest(t, afero.NewMemMapFs(), fake)

	err := eco.Stop(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrNotFound))
	assert.Empty(t, fake.Calls())
}

func TestMerge_BeforeClone(t *testing.T) {
	eco := openTest(t, afero.NewMemMapFs(), &runnertest.Fake{})
	_, err := eco.Merge()
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrNotFound))
}
