package mail

import (
	"context"

	"github.com/MrEthical07/pinreset"
	"go.uber.org/zap"
)

// LogMailer records each message envelope instead of sending it.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger.Named("mail")}
}

func (m *LogMailer) Send(ctx context.Context, msg pinreset.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("mail suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
		zap.Int("text_bytes", len(msg.Text)),
	)
	return nil
}
