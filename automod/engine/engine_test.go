package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doxguard/doxguard/automod/cachestore"
	"github.com/doxguard/doxguard/automod/incidentstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/oracle"
)

func testMessage(id, author, content string) *Message {
	return &Message{
		Ref: modqueue.ContentRef{
			CommunityID: "community-1",
			ChannelID:   "general",
			MessageID:   id,
			AuthorID:    author,
			AuthorName:  author + "-name",
			Link:        "https://chat.example.com/general/" + id,
		},
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestProcessVerdictIgnored(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()

	msg := testMessage("m1", "user-a", "hello")
	platform.AddMessage(msg)

	out, err := eng.ProcessVerdict(ctx, msg, &oracle.Verdict{IsFlagged: true, Probability: 0.49, RiskLevel: oracle.RiskHigh})
	assert.NoError(err)
	assert.Equal(OutcomeIgnored, out)

	out, err = eng.ProcessVerdict(ctx, msg, &oracle.Verdict{IsFlagged: false, Probability: 0.99, RiskLevel: oracle.RiskHigh})
	assert.NoError(err)
	assert.Equal(OutcomeIgnored, out)

	assert.Equal(0, eng.QueueDepth(ctx))
	assert.Empty(platform.ModLog)
	assert.Empty(platform.Deleted)
}

func TestProcessVerdictQueuesJaneDoe(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()

	now := time.Now()
	eng.Scorer.Now = func() time.Time { return now }
	for i := 0; i < 4; i++ {
		require.NoError(eng.Incidents.AddVictimMention(ctx, incidentstore.VictimMention{VictimName: "Jane Doe", Timestamp: now, ActorID: "someone"}))
	}

	msg := testMessage("m1", "user-a", "Jane Doe lives on Elm St")
	platform.AddMessage(msg)
	v := &oracle.Verdict{IsFlagged: true, Probability: 0.6, RiskLevel: oracle.RiskMedium, TargetName: "Jane Doe", Rationale: "address posted"}

	out, err := eng.ProcessVerdict(ctx, msg, v)
	require.NoError(err)
	assert.Equal(OutcomeQueued, out)

	// no immediate action
	assert.Empty(platform.Deleted)
	assert.Empty(platform.Channels)
	assert.Empty(platform.DirectsTo("user-a"))

	entries, err := eng.Queue.List(ctx)
	require.NoError(err)
	require.Len(entries, 1)
	e := entries[0]
	assert.InDelta(12.0, e.Severity, 1e-9)
	assert.InDelta(1.0/12.0, e.PriorityKey(), 1e-9)
	assert.Equal(modqueue.SourceOracle, e.Report.Source)
	assert.Equal("Jane Doe", e.Report.VictimNameClaim)
	assert.Equal(3, e.Report.ClaimedRiskLevel)
	assert.Equal(e.Sequence, e.Report.AuditID)

	rationale, ok, err := eng.Details(ctx, e.Report.AuditID)
	require.NoError(err)
	assert.True(ok)
	assert.Equal("address posted", rationale)

	_, ok, err = eng.Details(ctx, e.Report.AuditID+100)
	require.NoError(err)
	assert.False(ok)

	assert.Equal([]string{"Added by Bot to Review Queue: Medium Doxxing Risk, medium confidence"}, platform.ModLogTitles())
}

func TestProcessVerdictImmediate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()

	msg := testMessage("m1", "user-a", "John Smith, 123 Oak St, 555-0123")
	platform.AddMessage(msg)
	v := &oracle.Verdict{IsFlagged: true, Probability: 0.95, RiskLevel: oracle.RiskHigh, TargetName: "John Smith", InfoTypes: []string{"address", "phone"}}

	out, err := eng.ProcessVerdict(ctx, msg, v)
	require.NoError(err)
	assert.Equal(OutcomeRemoved, out)

	assert.Equal([]modqueue.ContentRef{msg.Ref}, platform.Deleted)
	require.Len(platform.Channels, 1)
	assert.Equal("general", platform.Channels[0].ChannelID)
	assert.Equal(channelRemovalNotice, platform.Channels[0].Text)

	dms := platform.DirectsTo("user-a")
	require.Len(dms, 2)
	assert.Contains(dms[0].Text, "(address and phone number)")
	// severity 4 crosses the warning band
	require.NotNil(dms[1].Entry)
	assert.Equal("Official Warning", dms[1].Entry.Title)

	incidents, err := eng.Incidents.ListIncidents(ctx, "user-a")
	require.NoError(err)
	require.Len(incidents, 1)
	assert.Equal(4, incidents[0].Severity)
	assert.Equal("John Smith", incidents[0].VictimName)

	mentions, err := eng.Incidents.ListVictimMentions(ctx, "John Smith")
	require.NoError(err)
	assert.Len(mentions, 1)

	assert.Equal(0, eng.QueueDepth(ctx))
	titles := platform.ModLogTitles()
	assert.Contains(titles, "Post Automatically Removed for Doxxing: High Risk")
	assert.Contains(titles, "User <@user-a> was sent a warning.")
}

func TestProcessVerdictUnknownVictimSkipsMention(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()

	msg := testMessage("m1", "user-a", "her number is 555-0123")
	platform.AddMessage(msg)
	out, err := eng.ProcessVerdict(ctx, msg, &oracle.Verdict{IsFlagged: true, Probability: 0.9, RiskLevel: oracle.RiskLow})
	assert.NoError(err)
	assert.Equal(OutcomeRemoved, out)

	incidents, err := eng.Incidents.ListIncidents(ctx, "user-a")
	assert.NoError(err)
	assert.Len(incidents, 1)
	assert.Equal(incidentstore.UnknownVictim, incidents[0].VictimName)

	mentions, err := eng.Incidents.ListVictimMentions(ctx, incidentstore.UnknownVictim)
	assert.NoError(err)
	assert.Empty(mentions)
}

func TestProcessVerdictRemovalFailureContinues(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()
	platform.DeleteErr = ErrForbidden

	msg := testMessage("m1", "user-a", "John Smith, 123 Oak St")
	platform.AddMessage(msg)
	out, err := eng.ProcessVerdict(ctx, msg, &oracle.Verdict{IsFlagged: true, Probability: 0.9, RiskLevel: oracle.RiskMedium, TargetName: "John Smith"})
	assert.NoError(err)
	assert.Equal(OutcomeRemoved, out)
	assert.Empty(platform.Deleted)

	// later side effects still ran
	incidents, err := eng.Incidents.ListIncidents(ctx, "user-a")
	assert.NoError(err)
	assert.Len(incidents, 1)
	assert.Len(platform.Channels, 1)
	result, ok := platform.ModLog[len(platform.ModLog)-1].Entry.Field("Result")
	assert.True(ok)
	assert.Contains(result, "Permission error")
}

func TestAutoRemoveQuota(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()
	eng.Config.AutoRemoveQuotaDay = 1

	v := &oracle.Verdict{IsFlagged: true, Probability: 0.99, RiskLevel: oracle.RiskHigh}
	m1 := testMessage("m1", "user-a", "first")
	m2 := testMessage("m2", "user-b", "second")
	platform.AddMessage(m1)
	platform.AddMessage(m2)

	out, err := eng.ProcessVerdict(ctx, m1, v)
	assert.NoError(err)
	assert.Equal(OutcomeRemoved, out)

	out, err = eng.ProcessVerdict(ctx, m2, v)
	assert.NoError(err)
	assert.Equal(OutcomeQueued, out)
	assert.Equal(1, eng.QueueDepth(ctx))
}

func TestProcessMessage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, platform, mo := EngineTestFixture()

	flagged := &oracle.Verdict{IsFlagged: true, Probability: 0.7, RiskLevel: oracle.RiskLow}
	mo.Set("dox", flagged)

	exempt := testMessage("m1", "user-exempt", "dox")
	platform.AddMessage(exempt)
	out, err := eng.ProcessMessage(ctx, exempt)
	assert.NoError(err)
	assert.Equal(OutcomeExempt, out)
	assert.Equal(0, mo.Calls)

	msg := testMessage("m2", "user-a", "dox")
	platform.AddMessage(msg)
	out, err = eng.ProcessMessage(ctx, msg)
	assert.NoError(err)
	assert.Equal(OutcomeQueued, out)

	mo.Err = errors.New("classifier unavailable")
	out, err = eng.ProcessMessage(ctx, testMessage("m3", "user-a", "dox"))
	assert.NoError(err)
	assert.Equal(OutcomeIgnored, out)
	assert.Equal(1, eng.QueueDepth(ctx))
}

func TestFileHumanReport(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()
	eng.Config.ReportQuotaDay = 2

	msg := testMessage("m1", "user-a", "meet me outside her house")
	platform.AddMessage(msg)
	reporter := &modqueue.Identity{ID: "user-r", Name: "reporter"}

	newRecord := func() *modqueue.ReportRecord {
		return &modqueue.ReportRecord{
			Content:          msg.Ref,
			Reporter:         reporter,
			Reason:           modqueue.ReasonCredibleThreat,
			ClaimedRiskLevel: 4,
			Snapshot:         msg.Content,
		}
	}

	e, err := eng.FileHumanReport(ctx, newRecord())
	require.NoError(err)
	assert.Equal(modqueue.SourceHumanFiled, e.Report.Source)
	assert.Equal(4.0, e.Severity)

	_, err = eng.FileHumanReport(ctx, newRecord())
	require.NoError(err)

	_, err = eng.FileHumanReport(ctx, newRecord())
	assert.ErrorIs(err, ErrQuotaExceeded)
	assert.Equal(2, eng.QueueDepth(ctx))

	titles := platform.ModLogTitles()
	assert.Len(titles, 2)
	assert.Equal("New Report Added to Review Queue: Credible Threat of Violence", titles[0])

	rec := newRecord()
	rec.Reporter = nil
	_, err = eng.FileHumanReport(ctx, rec)
	assert.Error(err)
}

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(DefaultConfig().Validate())
	c := DefaultConfig()
	c.LowThreshold = 0.9
	c.HighThreshold = 0.5
	assert.Error(c.Validate())
}

func TestDetailsSurviveCacheEviction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, platform, _ := EngineTestFixture()
	eng.Cache = cachestore.NewMemCacheStore(2, time.Hour)

	for i, id := range []string{"m1", "m2", "m3", "m4"} {
		msg := testMessage(id, "user-a", "post "+id)
		platform.AddMessage(msg)
		v := &oracle.Verdict{IsFlagged: true, Probability: 0.6, RiskLevel: oracle.RiskLow, Rationale: "rationale " + id}
		out, err := eng.ProcessVerdict(ctx, msg, v)
		require.NoError(err)
		require.Equal(OutcomeQueued, out, "verdict %d", i)
	}
	assert.Equal(4, eng.QueueDepth(ctx))

	// the first entry is still queued, though its cache slot is long gone
	entries, err := eng.Queue.List(ctx)
	require.NoError(err)
	var first int64
	for _, e := range entries {
		if e.Report.Content.MessageID == "m1" {
			first = e.Report.AuditID
		}
	}
	require.NotZero(first)

	rationale, ok, err := eng.Details(ctx, first)
	require.NoError(err)
	assert.True(ok)
	assert.Equal("rationale m1", rationale)

	// no cache at all still works
	eng.Cache = nil
	rationale, ok, err = eng.Details(ctx, first)
	require.NoError(err)
	assert.True(ok)
	assert.Equal("rationale m1", rationale)
}
