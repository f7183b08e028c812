// Package notify surfaces user-facing notifications to the operator log.
package notify

import (
	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/core"
)

type Logger struct {
	logger log.FieldLogger
}

func NewLogger(logger log.FieldLogger) *Logger {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Logger{logger: logger}
}

// HandleEvent logs notification events; critical ones at error level.
func (l *Logger) HandleEvent(e core.Event) {
	if e.Kind != core.EventNotification || e.Notification == nil {
		return
	}

	entry := l.logger.WithField("title", e.Notification.Title)
	if e.Notification.Critical {
		entry.Error(e.Notification.Message)
		return
	}
	entry.Info(e.Notification.Message)
}
