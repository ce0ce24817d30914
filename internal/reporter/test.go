package reporter

import (
	"fmt"
	"time"

	"github.com/nas-notifier/nas-notifier/internal/event"
)

// TestEvent creates a synthetic event for testing sink connectivity.
type TestEvent struct {
	Host string
}

// ToEvent converts a TestEvent to a real Event suitable for Report().
func (t *TestEvent) ToEvent() *event.Event {
	summary := fmt.Sprintf("Test notification from `%s`. If you see this, nas-notifier is configured correctly.", t.Host)
	return event.New(t.Host, time.Now(), event.KindTest, summary)
}
