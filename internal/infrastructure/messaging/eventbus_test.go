package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internship-back-office/internal/domain/shared"
)

func TestEventBus_PublishDeliversToMatchingSubscribers(t *testing.T) {
	bus := NewEventBus(nil)

	var completed, issued int
	bus.Subscribe(shared.EventInternCompleted, func(e shared.Event) { completed++ })
	bus.Subscribe(shared.EventCertificateIssued, func(e shared.Event) { issued++ })

	event := shared.NewInternCompletedEvent("id-1", "INT-001", time.Now())
	require.NoError(t, bus.Publish(event))

	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, issued)
}

func TestEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := NewEventBus(nil)

	var seen []shared.EventType
	bus.SubscribeAll(func(e shared.Event) { seen = append(seen, e.EventType()) })

	require.NoError(t, bus.Publish(shared.NewInternCompletedEvent("id-1", "INT-001", time.Now())))
	require.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("fb-1", "INT-001", "108123456")))

	assert.Equal(t, []shared.EventType{
		shared.EventInternCompleted,
		shared.EventCertificateIssued,
	}, seen)
}

func TestEventBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewEventBus(nil)

	var after int
	bus.Subscribe(shared.EventInternCompleted, func(e shared.Event) { panic("boom") })
	bus.Subscribe(shared.EventInternCompleted, func(e shared.Event) { after++ })

	require.NoError(t, bus.Publish(shared.NewInternCompletedEvent("id-1", "INT-001", time.Now())))

	assert.Equal(t, 1, after, "handlers after a panic must still run")
	assert.Equal(t, uint64(1), bus.Metrics().Panics)
}

func TestEventBus_NilEventRejected(t *testing.T) {
	bus := NewEventBus(nil)
	assert.Error(t, bus.Publish(nil))
}
