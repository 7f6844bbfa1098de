package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doxguard/doxguard/automod/flagstore"
	"github.com/doxguard/doxguard/automod/incidentstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/reputation"
)

func TestApplyTierOncePerBand(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()

	now := time.Now()
	eng.Scorer.Now = func() time.Time { return now }
	author := modqueue.Identity{ID: "user-a", Name: "alice"}
	add := func(sev int) {
		require.NoError(eng.Incidents.AddIncident(ctx, incidentstore.Incident{ActorID: author.ID, ActorName: author.Name, Timestamp: now, Severity: sev}))
	}

	add(2)
	assert.Equal(reputation.TierNone, eng.ApplyTier(ctx, "c1", author, reputation.TierNone))
	assert.Empty(platform.DirectsTo(author.ID))

	add(1)
	assert.Equal(reputation.TierWarning, eng.ApplyTier(ctx, "c1", author, reputation.TierNone))
	assert.Len(platform.DirectsTo(author.ID), 1)

	// same band: no second notice
	assert.Equal(reputation.TierWarning, eng.ApplyTier(ctx, "c1", author, reputation.TierNone))
	assert.Len(platform.DirectsTo(author.ID), 1)

	add(3)
	assert.Equal(reputation.TierSuspension, eng.ApplyTier(ctx, "c1", author, reputation.TierNone))
	dms := platform.DirectsTo(author.ID)
	require.Len(dms, 2)
	assert.Equal("Suspension Notice", dms[1].Entry.Title)

	flags, err := eng.Flags.Get(ctx, flagstore.ActorKey(author.ID))
	require.NoError(err)
	assert.True(flagstore.HasFlag(flags, flagstore.FlagWarned))
	assert.True(flagstore.HasFlag(flags, flagstore.TierFlag("warning")))
	assert.True(flagstore.HasFlag(flags, flagstore.TierFlag("suspension")))
	assert.False(flagstore.HasFlag(flags, flagstore.TierFlag("ban")))
}

func TestApplyTierFloorAndClear(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()
	author := modqueue.Identity{ID: "user-b", Name: "bob"}

	// reviewer-mandated floor with no history
	assert.Equal(reputation.TierBan, eng.ApplyTier(ctx, "c1", author, reputation.TierBan))
	dms := platform.DirectsTo(author.ID)
	require.Len(dms, 1)
	assert.Equal("Account Banned Notice", dms[0].Entry.Title)

	// score back under the warning band clears every marker
	assert.Equal(reputation.TierNone, eng.ApplyTier(ctx, "c1", author, reputation.TierNone))
	flags, err := eng.Flags.Get(ctx, flagstore.ActorKey(author.ID))
	require.NoError(err)
	assert.Empty(flags)

	// a floor never lowers the score tier
	now := time.Now()
	eng.Scorer.Now = func() time.Time { return now }
	require.NoError(eng.Incidents.AddIncident(ctx, incidentstore.Incident{ActorID: author.ID, Timestamp: now, Severity: 6}))
	assert.Equal(reputation.TierSuspension, eng.ApplyTier(ctx, "c1", author, reputation.TierWarning))
}
