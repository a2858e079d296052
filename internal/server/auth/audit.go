package auth

import "context"

const (
	actionIssued        = "TOKEN_ISSUED"
	actionRotated       = "TOKEN_ROTATED"
	actionRefreshFailed = "TOKEN_REFRESH_FAILED"
	actionRevoked       = "TOKEN_REVOKED"
	actionRevokedAll    = "TOKEN_REVOKED_ALL"
	actionPurged        = "TOKEN_PURGED"

	resultSuccess = "success"
	resultFailure = "failure"
	resultNoop    = "noop"

	rotationRotated = "rotated"
)

// audit writes one structured line per state change. Tokens themselves are
// never logged, only ids.
func (s *Service) audit(ctx context.Context, action, result string, args ...any) {
	kv := append([]any{"audit", true, "action", action, "result", result}, args...)
	if result == resultFailure {
		s.log.Warn(ctx, "token audit", kv...)
		return
	}
	s.log.Info(ctx, "token audit", kv...)
}
