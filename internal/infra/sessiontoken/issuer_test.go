package sessiontoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ai-travel-planner/pkg/errors"
)

func TestIssueAndParse(t *testing.T) {
	t.Parallel()
	issuer, err := NewIssuer("s3cret")
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue("session-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "session-1", id)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	issuer, err := NewIssuer("s3cret")
	require.NoError(t, err)
	other, err := NewIssuer("different")
	require.NoError(t, err)

	foreign, _, err := other.Issue("session-1", time.Hour)
	require.NoError(t, err)

	expiredIssuer, err := NewIssuer("s3cret")
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue("session-1", time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"wrong key": foreign,
		"expired":   expired,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Parse(token)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
		})
	}
}

func TestEmptySecretStillSigns(t *testing.T) {
	t.Parallel()
	issuer, err := NewIssuer("")
	require.NoError(t, err)
	token, _, err := issuer.Issue("abc", time.Minute)
	require.NoError(t, err)
	id, err := issuer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "abc", id)
}
