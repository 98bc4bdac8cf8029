// Package notifier delivers operator messages over Telegram or the log.
package notifier

import (
	"context"

	"Watchtower/internal/common"
)

// Notifier delivers a formatted text message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes messages to the log. It is used when Telegram is not
// configured.
type LogNotifier struct {
	logger *common.Logger
}

func NewLogNotifier(logger *common.Logger) *LogNotifier {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &LogNotifier{logger: logger.Component("notifier")}
}

func (n *LogNotifier) Send(_ context.Context, text string) error {
	n.logger.Info().Str("text", text).Msg("notification")
	return nil
}
