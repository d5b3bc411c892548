package passphrase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func scripted(answers ...string) func(string) (string, error) {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("no more answers")
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
}

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("REFCTL_TEST_PASS", "from-env")
	src := NewSource("REFCTL_TEST_PASS")
	src.prompt = func(string) (string, error) {
		t.Fatalf("prompt must not run when the environment is set")
		return "", nil
	}
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", value)
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("REFCTL_TEST_PASS", "  ")
	_, err := NewSource("REFCTL_TEST_PASS").Get()
	require.Error(t, err)
}

func TestSourceConfirmation(t *testing.T) {
	src := NewSource("").WithConfirmation()
	src.prompt = scripted("hunter2", "hunter3")
	_, err := src.Get()
	require.ErrorContains(t, err, "do not match")

	src = NewSource("").WithConfirmation()
	src.prompt = scripted("hunter2", "hunter2")
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)

	again, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, value, again)
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("REFCTL_UNSET_PASS")
	src.prompt = func(string) (string, error) { return "", errNoTerminal }
	_, err := src.Get()
	require.ErrorContains(t, err, "REFCTL_UNSET_PASS")
}
