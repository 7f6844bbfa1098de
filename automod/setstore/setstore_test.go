package setstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemSetStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemSetStore()
	ok, err := s.InSet(ctx, SetReviewers, "mod1")
	assert.NoError(err)
	assert.False(ok)

	s.Add(SetReviewers, "mod1", "mod2")
	ok, err = s.InSet(ctx, SetReviewers, "mod1")
	assert.NoError(err)
	assert.True(ok)
	ok, err = s.InSet(ctx, SetExemptAuthors, "mod1")
	assert.NoError(err)
	assert.False(ok)
}

func TestLoadFromFileJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "sets.json")
	assert.NoError(os.WriteFile(p, []byte(`{"exempt-authors": ["bot1", "bot2"], "reviewers": ["mod1"]}`), 0644))

	s := NewMemSetStore()
	assert.NoError(s.LoadFromFileJSON(p))

	ok, err := s.InSet(ctx, SetExemptAuthors, "bot2")
	assert.NoError(err)
	assert.True(ok)
	ok, err = s.InSet(ctx, SetReviewers, "bot2")
	assert.NoError(err)
	assert.False(ok)

	assert.Error(s.LoadFromFileJSON(filepath.Join(t.TempDir(), "missing.json")))
}
