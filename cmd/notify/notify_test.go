package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
)

func execute(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTestEmail_InvalidAddress(t *testing.T) {
	_, err := execute(t, &conf.Settings{}, "test-email", "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email address")
}

func TestTestEmail_TransportNotConfigured(t *testing.T) {
	_, err := execute(t, &conf.Settings{}, "test-email", "tab@example.org")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestTestEmail_RequiresAddress(t *testing.T) {
	_, err := execute(t, &conf.Settings{}, "test-email")
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	out, err := execute(t, &conf.Settings{}, "templates")
	require.NoError(t, err)

	for _, want := range []string{"url", "team", "adj", "team_points", "motion", "tournament", "round"} {
		assert.Contains(t, out, want)
	}
}
