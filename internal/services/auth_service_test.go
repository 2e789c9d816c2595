package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sharetrust/sharetrust/pkg/bloom"
)

func TestSplitRefreshToken(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		sessionID, secret, err := splitRefreshToken("sess-1.abc.def")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", sessionID)
		// secret 自身可以包含点号，只按第一个点切分
		assert.Equal(t, "abc.def", secret)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, token := range []string{"", "no-dot", ".secret", "session.", "."} {
			_, _, err := splitRefreshToken(token)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken, "token %q", token)
		}
	})
}

func newReplayTestService(t *testing.T, withRedis bool) (*AuthService, *miniredis.Miniredis) {
	t.Helper()

	var client *redis.Client
	var mr *miniredis.Miniredis
	if withRedis {
		mr = miniredis.RunT(t)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
	}

	svc := &AuthService{
		redis:      client,
		codeFilter: bloom.New(1000, 0.01),
		logger:     zap.NewNop(),
	}
	return svc, mr
}

func TestGuardCodeReplay_WithRedis(t *testing.T) {
	svc, _ := newReplayTestService(t, true)
	ctx := context.Background()

	require.NoError(t, svc.guardCodeReplay(ctx, "code-1"))
	assert.ErrorIs(t, svc.guardCodeReplay(ctx, "code-1"), ErrCodeReplayed)
	require.NoError(t, svc.guardCodeReplay(ctx, "code-2"))
}

func TestGuardCodeReplay_RedisDown_FailsOpen(t *testing.T) {
	svc, mr := newReplayTestService(t, true)
	ctx := context.Background()

	mr.Close()

	// Redis 不可用时放行，登录可用性优先于防重放
	assert.NoError(t, svc.guardCodeReplay(ctx, "code-1"))
	assert.NoError(t, svc.guardCodeReplay(ctx, "code-1"))
}

func TestGuardCodeReplay_WithoutRedis_UsesBloom(t *testing.T) {
	svc, _ := newReplayTestService(t, false)
	ctx := context.Background()

	require.NoError(t, svc.guardCodeReplay(ctx, "code-1"))
	assert.ErrorIs(t, svc.guardCodeReplay(ctx, "code-1"), ErrCodeReplayed)
}
