package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/modqueue"
)

func TestReportSessionDoxxing(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := engine.EngineTestFixture()

	ref := modqueue.ContentRef{CommunityID: "community-1", ChannelID: "general", MessageID: "m1", AuthorID: "user-a", AuthorName: "alice", Link: "https://chat.example.com/general/m1"}
	platform.AddMessage(&engine.Message{Ref: ref, Content: "Jane lives at 789 Elm St"})

	r := NewReportSession(eng, modqueue.Identity{ID: "user-r", Name: "rita"})
	assert.Contains(r.Handle(ctx, "hello")[0], "I don't know what that command means")
	assert.Equal(ReportStart, r.State())

	r.Handle(ctx, "report")
	assert.Equal(ReportAwaitingLink, r.State())

	assert.Contains(r.Handle(ctx, "https://chat.example.com/general/nope")[0], "I cannot find that message")
	assert.Equal(ReportAwaitingLink, r.State())

	replies := r.Handle(ctx, ref.Link)
	require.Len(replies, 2)
	assert.Contains(replies[0], "alice: Jane lives at 789 Elm St")
	assert.Equal(ReportAwaitingReason, r.State())

	r.Handle(ctx, "4")
	assert.Equal(ReportAwaitingReason, r.State())
	r.Handle(ctx, "1")
	assert.Equal(ReportAwaitingVictim, r.State())
	r.Handle(ctx, "Jane Doe")
	assert.Equal(ReportAwaitingRisk, r.State())
	r.Handle(ctx, "7")
	assert.Equal(ReportAwaitingRisk, r.State())
	replies = r.Handle(ctx, "4")
	assert.Equal(ReportConfirm, r.State())
	assert.Contains(replies[0], "Person targeted: Jane Doe")

	replies = r.Handle(ctx, "1")
	assert.Contains(replies[0], "Thank you for reporting")
	assert.True(r.Done())
	require.NotNil(r.Entry)

	entries, err := eng.Queue.List(ctx)
	require.NoError(err)
	require.Len(entries, 1)
	rec := entries[0].Report
	assert.Equal(modqueue.SourceHumanFiled, rec.Source)
	assert.Equal(modqueue.ReasonDoxxing, rec.Reason)
	assert.Equal("Jane Doe", rec.VictimNameClaim)
	assert.Equal(4, rec.ClaimedRiskLevel)
	assert.Equal("user-r", rec.Reporter.ID)
	assert.Equal(4.0, entries[0].Severity)
}

func TestReportSessionSkipVictimAndCancel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, _ := engine.EngineTestFixture()

	ref := modqueue.ContentRef{CommunityID: "community-1", ChannelID: "general", MessageID: "m1", AuthorID: "user-a", AuthorName: "alice", Link: "link-1"}
	platform.AddMessage(&engine.Message{Ref: ref, Content: "text"})

	r := NewReportSession(eng, modqueue.Identity{ID: "user-r", Name: "rita"})
	r.Handle(ctx, "report")
	r.Handle(ctx, "link-1")
	r.Handle(ctx, "1")
	r.Handle(ctx, "skip")
	replies := r.Handle(ctx, "2")
	assert.Contains(replies[0], "Person targeted: Unknown")

	assert.Equal([]string{"Report cancelled."}, r.Handle(ctx, "cancel"))
	assert.True(r.Done())
	assert.Equal(0, eng.QueueDepth(ctx))
}

func TestReportSessionQuota(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, _ := engine.EngineTestFixture()
	eng.Config.ReportQuotaDay = 1

	ref := modqueue.ContentRef{CommunityID: "community-1", ChannelID: "general", MessageID: "m1", AuthorID: "user-a", AuthorName: "alice", Link: "link-1"}
	platform.AddMessage(&engine.Message{Ref: ref, Content: "I know where you live"})

	file := func() []string {
		r := NewReportSession(eng, modqueue.Identity{ID: "user-r", Name: "rita"})
		r.Handle(ctx, "report")
		r.Handle(ctx, "link-1")
		r.Handle(ctx, "2")
		r.Handle(ctx, "3")
		return r.Handle(ctx, "1")
	}
	assert.Contains(file()[0], "Thank you for reporting")
	assert.Contains(file()[0], "daily limit")
	assert.Equal(1, eng.QueueDepth(ctx))
}
