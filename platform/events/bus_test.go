package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"realtorbuddy_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSurvivesPublisherCancellation(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	cancelled := make(chan struct{})
	observed := make(chan error, 1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, _ Event) error {
		// Wait until the publisher's context is gone, the way a scoring
		// pass outlives the HTTP request that triggered it.
		<-cancelled
		observed <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	close(cancelled)

	select {
	case err := <-observed:
		if err != nil {
			t.Fatalf("handler context cancelled with publisher: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never ran")
	}
}

func TestPublishSyncCollectsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	wantErr := errors.New("boom")
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error { return wantErr }))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error { return errors.New("later") }))

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()}); !errors.Is(err, wantErr) {
		t.Fatalf("PublishSync error = %v, want %v", err, wantErr)
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error { panic("handler bug") }))
	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()}); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
}
