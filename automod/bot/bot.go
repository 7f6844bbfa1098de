package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/review"
	"github.com/doxguard/doxguard/automod/setstore"
)

// Inbound chat event, as delivered by the chat bridge.
type Event struct {
	CommunityID string            `json:"community_id"`
	ChannelID   string            `json:"channel_id"`
	ChannelName string            `json:"channel_name"`
	MessageID   string            `json:"message_id"`
	Direct      bool              `json:"direct"`
	Author      modqueue.Identity `json:"author"`
	Content     string            `json:"content"`
	Link        string            `json:"link,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Config struct {
	// shared secret which opens a review session
	ReviewSecret string
	// the daemon's own user id; its messages are ignored
	BotUserID string
	// name of the channel whose messages are classified
	MonitoredChannel string
	// name of the moderator channel
	ModChannel string
	// only identities in the "reviewers" set may open review sessions
	RestrictReviewers bool
}

// Routes chat events: monitored channel messages to triage, direct messages to review and report sessions.
type Bot struct {
	Engine *engine.Engine
	Logger *slog.Logger
	Config Config

	Reviews *review.Registry[*review.Session]
	Reports *review.Registry[*review.ReportSession]
}

func NewBot(eng *engine.Engine, config Config) *Bot {
	return &Bot{
		Engine:  eng,
		Logger:  eng.Logger.With("component", "bot"),
		Config:  config,
		Reviews: review.NewRegistry[*review.Session](),
		Reports: review.NewRegistry[*review.ReportSession](),
	}
}

func (b *Bot) HandleEvent(ctx context.Context, ev *Event) error {
	if ev.Author.ID == "" {
		return fmt.Errorf("event without author")
	}
	if b.Config.BotUserID != "" && ev.Author.ID == b.Config.BotUserID {
		return nil
	}
	if ev.Direct {
		eventCount.WithLabelValues("direct").Inc()
		b.handleDirect(ctx, ev)
		return nil
	}
	eventCount.WithLabelValues("channel").Inc()
	return b.handleChannel(ctx, ev)
}

func (b *Bot) handleChannel(ctx context.Context, ev *Event) error {
	if ev.ChannelName == b.Config.ModChannel {
		if strings.TrimSpace(ev.Content) == review.KeywordHelp {
			reply := "To review a report, please DM the bot with the password. Reviewing is done via DM to prevent congestion in the shared moderator channel.\n"
			if err := b.Engine.Platform.PostChannel(ctx, ev.ChannelID, reply); err != nil {
				b.Logger.Warn("failed to reply in moderator channel", "err", err)
			}
		}
		return nil
	}
	if ev.ChannelName != b.Config.MonitoredChannel {
		return nil
	}

	msg := &engine.Message{
		Ref: modqueue.ContentRef{
			CommunityID: ev.CommunityID,
			ChannelID:   ev.ChannelID,
			MessageID:   ev.MessageID,
			AuthorID:    ev.Author.ID,
			AuthorName:  ev.Author.Name,
			Link:        ev.Link,
		},
		Content:   ev.Content,
		CreatedAt: ev.CreatedAt,
	}
	outcome, err := b.Engine.ProcessMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("triage of %s/%s: %w", ev.ChannelID, ev.MessageID, err)
	}
	b.Logger.Debug("triaged message", "channel", ev.ChannelID, "message", ev.MessageID, "outcome", outcome)
	return nil
}

func (b *Bot) reply(ctx context.Context, userID string, replies []string) {
	for _, r := range replies {
		if err := b.Engine.Platform.SendDirect(ctx, userID, r, nil); err != nil {
			b.Logger.Warn("failed to deliver reply", "user", userID, "err", err)
			return
		}
	}
}

func (b *Bot) canReview(ctx context.Context, userID string) bool {
	if !b.Config.RestrictReviewers {
		return true
	}
	ok, err := b.Engine.Sets.InSet(ctx, setstore.SetReviewers, userID)
	if err != nil {
		b.Logger.Error("reviewer set lookup failed", "user", userID, "err", err)
		return false
	}
	return ok
}

func (b *Bot) handleDirect(ctx context.Context, ev *Event) {
	userID := ev.Author.ID
	text := strings.TrimSpace(ev.Content)

	// completed sessions are dropped before anything else
	if s, ok := b.Reviews.Lookup(userID); ok && s.Done() {
		b.Reviews.Evict(userID)
	}
	if r, ok := b.Reports.Lookup(userID); ok && r.Done() {
		b.Reports.Evict(userID)
	}
	_, reviewing := b.Reviews.Lookup(userID)

	if !reviewing && text == "help" {
		b.reply(ctx, userID, []string{"Use the `report` command to begin the reporting process.\nUse the `cancel` command to cancel the report process.\n"})
		return
	}
	if !reviewing && text == review.KeywordHelp {
		b.reply(ctx, userID, []string{"Type in the moderator password to begin the reviewing process.\n"})
		return
	}

	if !reviewing && b.Config.ReviewSecret != "" && text == b.Config.ReviewSecret {
		if !b.canReview(ctx, userID) {
			b.Logger.Warn("review login refused", "user", userID)
			b.reply(ctx, userID, []string{"You are not authorized to review reports."})
			return
		}
		b.Reviews.Create(userID, func() *review.Session {
			return review.NewSession(b.Engine, ev.Author)
		})
		reviewing = true
		b.Logger.Info("review session opened", "reviewer", userID)
	}

	if reviewing {
		s, ok := b.Reviews.Lookup(userID)
		if ok {
			b.reply(ctx, userID, s.Handle(ctx, text))
			if s.Done() {
				b.Reviews.Evict(userID)
				b.Logger.Info("review session closed", "reviewer", userID)
			}
			return
		}
	}

	if _, ok := b.Reports.Lookup(userID); !ok && strings.ToLower(text) != review.KeywordReport {
		b.reply(ctx, userID, []string{"I don't know what that command means.\nUse the `report` command to begin the reporting process.\nUse the `cancel` command to cancel the report process.\n"})
		return
	}
	r, _ := b.Reports.Create(userID, func() *review.ReportSession {
		return review.NewReportSession(b.Engine, ev.Author)
	})
	b.reply(ctx, userID, r.Handle(ctx, text))
	if r.Done() {
		b.Reports.Evict(userID)
	}
}
