package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sotopia-lab/devc/test"
)

func validProfile() *ProfileConfig {
	return DefaultProfile()
}

func TestValidateProfileOK(t *testing.T) {
	p := validProfile()
	assert.NoError(t, ValidateProfile(p.Name, p))
}

func TestValidateProfileMissingService(t *testing.T) {
	p := validProfile()
	p.Service = ""

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "service")
}

func TestValidateProfileBadMount(t *testing.T) {
	p := validProfile()
	p.Mounts = []string{"no-container-side"}

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateProfileRelativeContainerPath(t *testing.T) {
	p := validProfile()
	p.Mounts = []string{".:workspaces/sotopia"}

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateProfileBadEnv(t *testing.T) {
	p := validProfile()
	p.Env = []string{"NOEQUALS"}

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateProfileBadName(t *testing.T) {
	p := validProfile()

	err := ValidateProfile("bad name!", p)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateProfileBadExtra(t *testing.T) {
	p := validProfile()
	p.Extras = []string{"test", "bad extra"}

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "extra")
}

func TestValidateProfileBadRunner(t *testing.T) {
	p := validProfile()
	p.Runner = "uv; rm -rf /"

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateProfileNeedsCommandOrTarget(t *testing.T) {
	p := validProfile()
	p.Command = ""
	p.Target = ""

	err := ValidateProfile(p.Name, p)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "command")
}

func TestValidateProfiles(t *testing.T) {
	conf, err := BuildFromString(`
		[profile "unit"]
		compose-file = compose.yml
		service = devcontainer
		target = pytest tests/unit

		[profile "broken"]
		compose-file = compose.yml
		target = pytest tests/unit
	`, test.NewTestLogger())
	require.NoError(t, err)

	assert.Error(t, conf.ValidateProfiles())
}
