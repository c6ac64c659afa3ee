package tokens_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todd-reagan/nile-collector/internal/tokens"
)

func TestNewUUID(t *testing.T) {
	token := tokens.NewUUID()
	_, err := uuid.Parse(token)
	assert.NoError(t, err)
	assert.NotEqual(t, token, tokens.NewUUID())
}

func TestGenerateUnique_FirstCandidateFree(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, token string) (bool, error) {
		calls++
		return false, nil
	}

	token, err := tokens.GenerateUnique(context.Background(), tokens.NewUUID, exists, tokens.MaxAttempts)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, calls)
}

func TestGenerateUnique_RetriesCollisions(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, token string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	token, err := tokens.GenerateUnique(context.Background(), tokens.NewUUID, exists, tokens.MaxAttempts)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 3, calls)
}

func TestGenerateUnique_ExhaustsAttempts(t *testing.T) {
	calls := 0
	alwaysUsed := func(ctx context.Context, token string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := tokens.GenerateUnique(context.Background(), tokens.NewUUID, alwaysUsed, tokens.MaxAttempts)
	assert.ErrorIs(t, err, tokens.ErrExhausted)
	assert.Equal(t, tokens.MaxAttempts, calls)
}

func TestGenerateUnique_CheckerErrorAborts(t *testing.T) {
	boom := errors.New("index unavailable")
	calls := 0
	failing := func(ctx context.Context, token string) (bool, error) {
		calls++
		return false, boom
	}

	_, err := tokens.GenerateUnique(context.Background(), tokens.NewUUID, failing, tokens.MaxAttempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "no retry against a failing checker")
}
