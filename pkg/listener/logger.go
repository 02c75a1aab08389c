package listener

import (
	"time"

	"github.com/AndrewLester/truetime/pkg/truetime"
	"go.uber.org/zap"
)

// Logger writes each event as a structured log line. Per-request traffic is
// logged at debug level, sync outcomes at info and failures at warn.
type Logger struct {
	log *zap.Logger
}

var _ truetime.EventListener = (*Logger)(nil)

func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.Named("truetime")}
}

func (l *Logger) SyncStarted(params truetime.Parameters) {
	l.log.Debug("sync started",
		zap.Strings("host_pool", params.HostPool),
		zap.Duration("timeout", params.ConnectionTimeout),
		zap.Int("retry_count", params.RetryCountAgainstSingleIP))
}

func (l *Logger) HostResolved(host string, addresses []string) {
	l.log.Debug("host resolved", zap.String("host", host), zap.Strings("addresses", addresses))
}

func (l *Logger) RequestSucceeded(result truetime.SyncResult) {
	l.log.Debug("request succeeded",
		zap.String("address", result.Address),
		zap.Duration("offset", result.ClockOffset),
		zap.Duration("delay", result.RoundTripDelay))
}

func (l *Logger) RequestFailed(address string, err error) {
	l.log.Debug("request failed", zap.String("address", address), zap.Error(err))
}

func (l *Logger) LastAttempt(address string) {
	l.log.Debug("last attempt", zap.String("address", address))
}

func (l *Logger) SyncSucceeded(result truetime.SyncResult) {
	l.log.Info("sync succeeded",
		zap.String("address", result.Address),
		zap.Duration("offset", result.ClockOffset),
		zap.Duration("delay", result.RoundTripDelay))
}

func (l *Logger) SyncFailed(err error) {
	l.log.Warn("sync failed", zap.Error(err))
}

func (l *Logger) NextSyncIn(delay time.Duration) {
	l.log.Info("next sync scheduled", zap.Duration("in", delay))
}

func (l *Logger) FallbackToDeviceTime() {
	l.log.Warn("no true time yet, using device time")
}

func (l *Logger) StoreFailed(err error) {
	l.log.Warn("anchor store failed", zap.Error(err))
}
