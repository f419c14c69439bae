package chat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Listen connects to Twitch IRC for the given channel and feeds every
// message through the handler until ctx is cancelled. Returns immediately
// when credentials are missing; chat is optional.
func Listen(ctx context.Context, channel, botUsername, oauthToken string, h *Handler) error {
	if channel == "" || botUsername == "" || oauthToken == "" {
		slog.Info("twitch chat creds not set; chat listener disabled")
		return nil
	}
	client := twitch.NewClient(botUsername, oauthToken)

	if h.Say == nil {
		h.Say = func(text string) { client.Say(channel, text) }
	}

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		badges := make([]string, 0, len(msg.User.Badges))
		for name := range msg.User.Badges {
			badges = append(badges, name)
		}
		_, isSub := msg.User.Badges["subscriber"]
		_, isMod := msg.User.Badges["moderator"]
		_, isBroadcaster := msg.User.Badges["broadcaster"]
		h.Handle(ctx, Message{
			Username:      msg.User.Name,
			DisplayName:   msg.User.DisplayName,
			Text:          msg.Message,
			Color:         msg.User.Color,
			Badges:        badges,
			IsSub:         isSub,
			IsMod:         isMod,
			IsBroadcaster: isBroadcaster,
		})
	})

	client.OnConnect(func() {
		slog.Info("twitch chat connected", slog.String("channel", channel))
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			slog.Warn("twitch chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	client.Join(channel)
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
		return err
	}
	<-done
	return nil
}
