package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/doxguard/doxguard/automod/cachestore"
	"github.com/doxguard/doxguard/automod/countstore"
	"github.com/doxguard/doxguard/automod/flagstore"
	"github.com/doxguard/doxguard/automod/incidentstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/oracle"
	"github.com/doxguard/doxguard/automod/reputation"
	"github.com/doxguard/doxguard/automod/setstore"
)

type DirectMessage struct {
	UserID string
	Text   string
	Entry  *LogEntry
}

type ChannelPost struct {
	ChannelID string
	Text      string
}

type ModLogPost struct {
	CommunityID string
	Entry       *LogEntry
}

// In-memory Platform for tests. Messages are keyed by channel and message id; links resolve through Links.
type MockPlatform struct {
	lk       sync.Mutex
	Messages map[string]*Message
	Links    map[string]modqueue.ContentRef

	// returned from DeleteMessage when set
	DeleteErr error

	Deleted  []modqueue.ContentRef
	Directs  []DirectMessage
	Channels []ChannelPost
	ModLog   []ModLogPost
}

var _ Platform = (*MockPlatform)(nil)

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		Messages: make(map[string]*Message),
		Links:    make(map[string]modqueue.ContentRef),
	}
}

func mockKey(ref modqueue.ContentRef) string {
	return ref.ChannelID + "/" + ref.MessageID
}

func (p *MockPlatform) AddMessage(msg *Message) {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.Messages[mockKey(msg.Ref)] = msg
	if msg.Ref.Link != "" {
		p.Links[msg.Ref.Link] = msg.Ref
	}
}

func (p *MockPlatform) FetchMessage(ctx context.Context, ref modqueue.ContentRef) (*Message, error) {
	p.lk.Lock()
	defer p.lk.Unlock()
	msg, ok := p.Messages[mockKey(ref)]
	if !ok {
		return nil, ErrNotFound
	}
	return msg, nil
}

func (p *MockPlatform) DeleteMessage(ctx context.Context, ref modqueue.ContentRef) error {
	p.lk.Lock()
	defer p.lk.Unlock()
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	if _, ok := p.Messages[mockKey(ref)]; !ok {
		return ErrNotFound
	}
	delete(p.Messages, mockKey(ref))
	p.Deleted = append(p.Deleted, ref)
	return nil
}

func (p *MockPlatform) ResolveLink(ctx context.Context, link string) (*Message, error) {
	p.lk.Lock()
	ref, ok := p.Links[link]
	p.lk.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return p.FetchMessage(ctx, ref)
}

func (p *MockPlatform) SendDirect(ctx context.Context, userID, text string, entry *LogEntry) error {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.Directs = append(p.Directs, DirectMessage{UserID: userID, Text: text, Entry: entry})
	return nil
}

func (p *MockPlatform) PostChannel(ctx context.Context, channelID, text string) error {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.Channels = append(p.Channels, ChannelPost{ChannelID: channelID, Text: text})
	return nil
}

func (p *MockPlatform) PostModLog(ctx context.Context, communityID string, entry *LogEntry) error {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.ModLog = append(p.ModLog, ModLogPost{CommunityID: communityID, Entry: entry})
	return nil
}

// Direct messages delivered to one user.
func (p *MockPlatform) DirectsTo(userID string) []DirectMessage {
	p.lk.Lock()
	defer p.lk.Unlock()
	var out []DirectMessage
	for _, dm := range p.Directs {
		if dm.UserID == userID {
			out = append(out, dm)
		}
	}
	return out
}

// Titles of every moderation log entry, in posting order.
func (p *MockPlatform) ModLogTitles() []string {
	p.lk.Lock()
	defer p.lk.Unlock()
	var out []string
	for _, post := range p.ModLog {
		out = append(out, post.Entry.Title)
	}
	return out
}

// Engine wired to in-memory stores, a MockPlatform and a MockOracle.
func EngineTestFixture() (*Engine, *MockPlatform, *oracle.MockOracle) {
	platform := NewMockPlatform()
	mo := oracle.NewMockOracle()
	incidents := incidentstore.NewMemIncidentStore()
	sets := setstore.NewMemSetStore()
	sets.Add(setstore.SetExemptAuthors, "user-exempt")
	eng := &Engine{
		Logger:     slog.Default(),
		Platform:   platform,
		Oracle:     mo,
		Queue:      modqueue.NewMemQueue(),
		Incidents:  incidents,
		Rationales: incidents,
		Scorer:     reputation.NewScorer(incidents, slog.Default()),
		Flags:      flagstore.NewMemFlagStore(),
		Counters:   countstore.NewMemCountStore(),
		Cache:      cachestore.NewMemCacheStore(100, time.Hour),
		Sets:       sets,
		Config:     DefaultConfig(),
	}
	return eng, platform, mo
}
