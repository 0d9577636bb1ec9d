package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes bundles to the structured log. The default in
// development and the fallback when no broker is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SessionCompleted(ctx context.Context, b *CompletionBundle) error {
	n.log.Info("session completed",
		slog.String("session_id", b.SessionID.String()),
		slog.String("respondent_id", string(b.RespondentID)),
		slog.String("invite_id", b.InviteID.String()),
		slog.Int("answers", len(b.Answers)),
		slog.Bool("suspicious", b.MatchReport.Suspicious()),
	)
	return nil
}

func (n *LogNotifier) VerificationCaptured(ctx context.Context, b *VerificationBundle) error {
	n.log.Info("verification captured",
		slog.String("session_id", b.SessionID.String()),
		slog.String("respondent_id", string(b.RespondentID)),
		slog.Bool("document_missing", b.DocumentMissing),
	)
	return nil
}
