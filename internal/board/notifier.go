package board

import log "github.com/sirupsen/logrus"

// Notifier surfaces the outcome of a user action.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	Logger log.FieldLogger
}

func (n LogNotifier) logger() log.FieldLogger {
	if n.Logger == nil {
		return log.StandardLogger()
	}
	return n.Logger
}

func (n LogNotifier) Success(msg string) {
	n.logger().WithField("outcome", "success").Info(msg)
}

func (n LogNotifier) Error(msg string) {
	n.logger().WithField("outcome", "error").Warn(msg)
}
