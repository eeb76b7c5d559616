package delivery

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/ukaji3/cashreport-go/internal/log"
)

// LogSender writes messages to w instead of delivering them.
type LogSender struct {
	mu     sync.Mutex
	w      io.Writer
	logger *log.Logger
}

func NewLogSender(w io.Writer, logger *log.Logger) *LogSender {
	return &LogSender{w: w, logger: logger.WithComponent(log.ComponentDelivery)}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "→ %s\n%s\n\n", msg.Destination, msg.Text); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	s.logger.InfoContext(ctx, "Message written",
		log.FieldDocument, msg.Document,
		log.FieldSize, humanize.Bytes(uint64(len(msg.Text))))
	return nil
}
