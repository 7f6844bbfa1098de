package flagstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fs := NewMemFlagStore()
	key := ActorKey("user123")

	l, err := fs.Get(ctx, key)
	assert.NoError(err)
	assert.Empty(l)

	assert.NoError(fs.Add(ctx, key, []string{FlagWarned, TierFlag("warning")}))
	assert.NoError(fs.Add(ctx, key, []string{FlagWarned, TierFlag("suspension")}))
	l, err = fs.Get(ctx, key)
	assert.NoError(err)
	assert.Equal(3, len(l))
	assert.True(HasFlag(l, "tier:suspension"))

	assert.NoError(fs.Remove(ctx, key, []string{FlagWarned, TierFlag("suspension"), TierFlag("ban")}))
	l, err = fs.Get(ctx, key)
	assert.NoError(err)
	assert.Equal([]string{"tier:warning"}, l)

	// other identities are independent
	l, err = fs.Get(ctx, ActorKey("user456"))
	assert.NoError(err)
	assert.Empty(l)
}
