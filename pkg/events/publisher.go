package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ChannelPublisher forwards events to a watermill topic, usually an in-process gochannel.
type ChannelPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewChannelPublisher(publisher message.Publisher, topic string) *ChannelPublisher {
	return &ChannelPublisher{publisher: publisher, topic: topic}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(NewEnvelope(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", event.EventType())
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topic, msg)
}

// MultiPublisher fans an event out to every configured publisher and joins the failures.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}
