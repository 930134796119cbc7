package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

// leveledLogger routes stripe-go's request logging into the service logger.
// stripe-go does not pass a context, so entries carry only base fields.
type leveledLogger struct {
	logg *logger.Logger
	ctx  context.Context
}

var _ stripe.LeveledLoggerInterface = (*leveledLogger)(nil)

func newLeveledLogger(logg *logger.Logger) *leveledLogger {
	return &leveledLogger{
		logg: logg,
		ctx:  logg.WithField(context.Background(), "component", "stripe-go"),
	}
}

func (l *leveledLogger) Debugf(format string, v ...any) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...any) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...any) {
	l.logg.Warn(l.ctx, fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...any) {
	l.logg.Error(l.ctx, "stripe request failed", fmt.Errorf(format, v...))
}
