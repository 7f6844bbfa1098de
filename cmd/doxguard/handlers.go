package main

import (
	"net/http"

	"github.com/doxguard/doxguard/automod/bot"

	"github.com/labstack/echo/v4"
)

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	if s.rdb != nil {
		if err := s.rdb.Ping(c.Request().Context()).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, GenericStatus{Status: "error", Daemon: "doxguard", Message: "redis unavailable"})
		}
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "doxguard"})
}

type eventResponse struct {
	QueueDepth int `json:"queue_depth"`
}

// Accepts one chat event from the bridge. Processing is synchronous; outbound replies go back through the bridge API rather than this response.
func (s *Server) HandleEvent(c echo.Context) error {
	var ev bot.Event
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	if ev.Author.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event author is required")
	}
	eventsReceived.Inc()

	ctx := c.Request().Context()
	if err := s.bot.HandleEvent(ctx, &ev); err != nil {
		eventsFailed.Inc()
		s.logger.Error("failed to process chat event", "err", err, "channel", ev.ChannelName, "message", ev.MessageID)
		return echo.NewHTTPError(http.StatusInternalServerError, "event processing failed")
	}
	return c.JSON(http.StatusOK, eventResponse{QueueDepth: s.engine.QueueDepth(ctx)})
}
