package revstream

import "go.uber.org/zap"

type config struct {
	logger *zap.Logger
	token  string
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets the client's logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithDelegationToken sets the opaque credential passed through to segment
// metadata calls that require authorization. The client neither parses nor
// refreshes it.
func WithDelegationToken(token string) Option {
	return func(cfg *config) {
		cfg.token = token
	}
}
