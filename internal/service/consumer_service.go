package service

import (
	"context"
	"encoding/json"

	"ai-concept-engine/internal/dto"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/pkg/events"
	pktNats "ai-concept-engine/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

const clusterUpdatesDurable = "concept-engine-clusters"

type IConsumerService interface {
	// Consume drains the async run topic until ctx is cancelled.
	Consume(ctx context.Context) error
	// HandleClustersUpdated turns an upstream clustering event into a run.
	HandleClustersUpdated(ctx context.Context, event events.Event) error
	// ConsumeClusterUpdates subscribes HandleClustersUpdated on the NATS bus.
	ConsumeClusterUpdates(ctx context.Context, sub *pktNats.Subscriber) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	conceptService IConceptService
	logger         logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	conceptService IConceptService,
	log logger.ILogger,
) IConsumerService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		conceptService: conceptService,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.RunMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(logger.ModuleConcept, "Failed to unmarshal run message", map[string]interface{}{
			"error": err,
		})
		msg.Ack() // never valid, do not redeliver
		return
	}

	// Failed runs are recorded in their report; redelivery would only repeat them.
	if _, err := cs.conceptService.RunWithId(ctx, payload.RunId, &payload.Request); err != nil {
		cs.logger.Error(logger.ModuleConcept, "Async run failed", map[string]interface{}{
			"run_id": payload.RunId.String(),
			"error":  err,
		})
	}
	msg.Ack()
}

func (cs *consumerService) HandleClustersUpdated(ctx context.Context, event events.Event) error {
	raw, err := json.Marshal(event.Payload())
	if err != nil {
		return err
	}
	var req dto.RunRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cs.logger.Error(logger.ModuleEvents, "Ignoring malformed cluster update", map[string]interface{}{
			"error": err,
		})
		return nil
	}
	if err := req.Validate(); err != nil {
		cs.logger.Error(logger.ModuleEvents, "Ignoring invalid cluster update", map[string]interface{}{
			"error": err,
		})
		return nil
	}
	if req.Trigger == "" {
		req.Trigger = TriggerEvent
	}

	_, err = cs.conceptService.Run(ctx, &req)
	return err
}

func (cs *consumerService) ConsumeClusterUpdates(ctx context.Context, sub *pktNats.Subscriber) error {
	return sub.Subscribe(ctx, events.ClustersUpdated, clusterUpdatesDurable, cs.HandleClustersUpdated)
}
