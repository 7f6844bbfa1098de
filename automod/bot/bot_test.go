package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/oracle"
	"github.com/doxguard/doxguard/automod/setstore"
)

func testBot() (*Bot, *engine.MockPlatform, *oracle.MockOracle) {
	eng, platform, mo := engine.EngineTestFixture()
	b := NewBot(eng, Config{
		ReviewSecret:     "modpassword",
		BotUserID:        "bot",
		MonitoredChannel: "general",
		ModChannel:       "moderation",
	})
	return b, platform, mo
}

func dm(userID, content string) *Event {
	return &Event{Direct: true, Author: modqueue.Identity{ID: userID, Name: userID}, Content: content}
}

func lastDirect(p *engine.MockPlatform, userID string) string {
	dms := p.DirectsTo(userID)
	if len(dms) == 0 {
		return ""
	}
	return dms[len(dms)-1].Text
}

func TestChannelMessageTriage(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	b, platform, mo := testBot()
	mo.Set("Jane Doe lives at 789 Elm St", &oracle.Verdict{IsFlagged: true, Probability: 0.7, RiskLevel: oracle.RiskMedium, TargetName: "Jane Doe"})

	ev := &Event{CommunityID: "c1", ChannelID: "ch-1", ChannelName: "general", MessageID: "m1", Author: modqueue.Identity{ID: "user-a", Name: "alice"}, Content: "Jane Doe lives at 789 Elm St"}
	require.NoError(b.HandleEvent(ctx, ev))
	assert.Equal(1, b.Engine.QueueDepth(ctx))

	// other channels and the bot itself are ignored
	ev2 := *ev
	ev2.ChannelName = "off-topic"
	require.NoError(b.HandleEvent(ctx, &ev2))
	ev3 := *ev
	ev3.Author = modqueue.Identity{ID: "bot"}
	require.NoError(b.HandleEvent(ctx, &ev3))
	assert.Equal(1, mo.Calls)

	assert.Error(b.HandleEvent(ctx, &Event{Content: "no author"}))
	assert.Empty(platform.Deleted)
}

func TestModChannelHelp(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	b, platform, mo := testBot()

	assert.NoError(b.HandleEvent(ctx, &Event{ChannelID: "mod-ch", ChannelName: "moderation", Author: modqueue.Identity{ID: "mod-1"}, Content: "-h"}))
	assert.Len(platform.Channels, 1)
	assert.Equal("mod-ch", platform.Channels[0].ChannelID)
	assert.Equal(0, mo.Calls)
}

func TestDirectRouting(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	b, platform, _ := testBot()

	b.HandleEvent(ctx, dm("user-a", "hi"))
	assert.Contains(lastDirect(platform, "user-a"), "I don't know what that command means")

	b.HandleEvent(ctx, dm("user-a", "help"))
	assert.Contains(lastDirect(platform, "user-a"), "Use the `report` command")

	b.HandleEvent(ctx, dm("user-a", "-h"))
	assert.Contains(lastDirect(platform, "user-a"), "moderator password")

	b.HandleEvent(ctx, dm("user-a", "report"))
	_, ok := b.Reports.Lookup("user-a")
	assert.True(ok)
	b.HandleEvent(ctx, dm("user-a", "cancel"))
	_, ok = b.Reports.Lookup("user-a")
	assert.False(ok)
}

func TestReviewLoginAndLogout(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	b, platform, _ := testBot()

	b.HandleEvent(ctx, dm("mod-1", "modpassword"))
	assert.Contains(lastDirect(platform, "mod-1"), "Thank you for starting the reviewing process.")
	_, ok := b.Reviews.Lookup("mod-1")
	assert.True(ok)

	// inside a session, -h is the session help
	b.HandleEvent(ctx, dm("mod-1", "-h"))
	assert.Contains(lastDirect(platform, "mod-1"), "To begin a review")

	b.HandleEvent(ctx, dm("mod-1", "-l"))
	assert.Contains(lastDirect(platform, "mod-1"), "You are now logged out.")
	_, ok = b.Reviews.Lookup("mod-1")
	assert.False(ok)
}

func TestRestrictedReviewers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	b, platform, _ := testBot()
	b.Config.RestrictReviewers = true
	b.Engine.Sets.(*setstore.MemSetStore).Add(setstore.SetReviewers, "mod-1")

	b.HandleEvent(ctx, dm("user-a", "modpassword"))
	assert.Equal("You are not authorized to review reports.", lastDirect(platform, "user-a"))
	assert.Equal(0, b.Reviews.Len())

	b.HandleEvent(ctx, dm("mod-1", "modpassword"))
	assert.Equal(1, b.Reviews.Len())
}

func TestEndToEndReportAndReview(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	b, platform, _ := testBot()

	ref := modqueue.ContentRef{CommunityID: "c1", ChannelID: "ch-1", MessageID: "m1", AuthorID: "user-a", AuthorName: "alice", Link: "https://chat.example.com/ch-1/m1"}
	platform.AddMessage(&engine.Message{Ref: ref, Content: "I'm going to hurt you"})

	for _, in := range []string{"report", ref.Link, "2", "4", "1"} {
		require.NoError(b.HandleEvent(ctx, dm("user-r", in)))
	}
	assert.Contains(lastDirect(platform, "user-r"), "Thank you for reporting")
	assert.Equal(1, b.Engine.QueueDepth(ctx))

	for _, in := range []string{"modpassword", "-r", "1", "1"} {
		require.NoError(b.HandleEvent(ctx, dm("mod-1", in)))
	}
	assert.Contains(lastDirect(platform, "mod-1"), "Review finalized")
	assert.Equal([]modqueue.ContentRef{ref}, platform.Deleted)
	assert.Contains(lastDirect(platform, "user-r"), "took action")
	assert.Equal(0, b.Reviews.Len())
}
