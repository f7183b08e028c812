package notify

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printbridge/internal/core"
)

func TestLogger_HandleEvent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogger(logger)

	n.HandleEvent(core.Event{Kind: core.EventNotification, Notification: &core.Notification{
		Title: "Print Job Failed", Message: "Printer: Bar", Critical: true,
	}})
	n.HandleEvent(core.Event{Kind: core.EventNotification, Notification: &core.Notification{
		Title: "Hello", Message: "just saying",
	}})
	n.HandleEvent(core.Event{Kind: core.EventQueueUpdated})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, log.ErrorLevel, entries[0].Level)
	assert.Equal(t, "Printer: Bar", entries[0].Message)
	assert.Equal(t, "Print Job Failed", entries[0].Data["title"])
	assert.Equal(t, log.InfoLevel, entries[1].Level)
}
