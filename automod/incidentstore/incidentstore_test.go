package incidentstore

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testGormStore(t *testing.T) *GormIncidentStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	// each connection to ":memory:" is a separate database
	sqldb, err := db.DB()
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	s, err := NewGormIncidentStore(db)
	require.NoError(t, err)
	return s
}

func testStoreBasics(t *testing.T, s IncidentStore) {
	assert := assert.New(t)
	ctx := context.Background()

	actor := gofakeit.Username()
	victim := gofakeit.Name()
	now := time.Now().UTC().Truncate(time.Second)

	l, err := s.ListIncidents(ctx, actor)
	assert.NoError(err)
	assert.Empty(l)

	assert.NoError(s.AddIncident(ctx, Incident{ActorID: actor, ActorName: actor, Timestamp: now.Add(-time.Hour), VictimName: victim, Severity: 2}))
	assert.NoError(s.AddIncident(ctx, Incident{ActorID: actor, ActorName: actor, Timestamp: now, Severity: 4}))
	assert.NoError(s.AddIncident(ctx, Incident{ActorID: "someone-else", Timestamp: now, Severity: 1}))

	l, err = s.ListIncidents(ctx, actor)
	assert.NoError(err)
	assert.Equal(2, len(l))
	assert.Equal(2, l[0].Severity)
	assert.Equal(victim, l[0].VictimName)
	assert.True(now.Equal(l[1].Timestamp))

	assert.NoError(s.AddVictimMention(ctx, VictimMention{VictimName: victim, Timestamp: now, ActorID: actor}))
	assert.NoError(s.AddVictimMention(ctx, VictimMention{VictimName: "  " + victim + " ", Timestamp: now}))

	// names match case-insensitively
	m, err := s.ListVictimMentions(ctx, NormalizeName(victim))
	assert.NoError(err)
	assert.Equal(2, len(m))

	m, err = s.ListVictimMentions(ctx, "nobody in particular")
	assert.NoError(err)
	assert.Empty(m)
}

func testRationales(t *testing.T, s RationaleStore) {
	assert := assert.New(t)
	ctx := context.Background()

	_, ok, err := s.GetRationale(ctx, 7)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(s.SaveRationale(ctx, 7, "home address posted"))
	assert.NoError(s.SaveRationale(ctx, 8, "phone number"))
	val, ok, err := s.GetRationale(ctx, 7)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("home address posted", val)

	// overwrite keeps a single row
	assert.NoError(s.SaveRationale(ctx, 7, "home address and phone posted"))
	val, ok, err = s.GetRationale(ctx, 7)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("home address and phone posted", val)
}

func TestMemIncidentStore(t *testing.T) {
	s := NewMemIncidentStore()
	testStoreBasics(t, s)
	testRationales(t, s)
}

func TestGormIncidentStore(t *testing.T) {
	s := testGormStore(t)
	testStoreBasics(t, s)
	testRationales(t, s)
}

func TestPlaceholderName(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsPlaceholderName(""))
	assert.True(IsPlaceholderName("   "))
	assert.True(IsPlaceholderName("Unknown"))
	assert.True(IsPlaceholderName("unknown "))
	assert.False(IsPlaceholderName("Jane Doe"))
}
