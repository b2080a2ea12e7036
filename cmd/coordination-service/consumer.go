package main

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/events"
)

// EngineConsumerGroup keeps the scoring consumer separate from any other
// group reading the same stream.
const EngineConsumerGroup = "coordination-engine"

// startConsumer consumes domain events and keeps derived scores current.
// Recomputes are idempotent (always derived from the full persisted state),
// so redelivered events are harmless.
func startConsumer(app *App) {
	log.Println("Starting event consumer...")

	ctx := context.Background()
	consumerName := app.InstanceID + "-consumer"

	err := app.EventBus.Consume(ctx, EngineConsumerGroup, consumerName, func(event *events.Event) error {
		return handleEvent(app, ctx, event)
	})
	if err != nil {
		log.Printf("Event consumer stopped: %v", err)
	}
}

// handleEvent routes one event to the appropriate recompute
func handleEvent(app *App, ctx context.Context, event *events.Event) error {
	log.Printf("[CONSUMER] Processing event: %s (subject: %s)", event.EventType, event.SubjectID)

	switch event.EventType {
	case events.ReportVoted, events.ReportVerified, events.ReportConfirmed, events.ReportFlagged:
		reportID, err := uuid.Parse(event.SubjectID)
		if err != nil {
			log.Printf("[CONSUMER] Skipping event %s with non-UUID subject %q", event.EventID, event.SubjectID)
			return nil
		}
		score, err := app.Scoring.RecomputeConsensus(ctx, reportID)
		if err != nil {
			return err
		}
		log.Printf("[CONSUMER] Consensus for report %s recomputed: %d", reportID, score)

	case events.ReputationChanged:
		score, err := app.Scoring.RecomputeTrust(ctx, event.SubjectID)
		if err != nil {
			return err
		}
		log.Printf("[CONSUMER] Trust for user %s recomputed: %d", event.SubjectID, score)

	case events.ReportCreated, events.AllocationCompleted:
		// Informational for downstream consumers; nothing to recompute here.

	default:
		log.Printf("[CONSUMER] Ignoring unknown event type: %s", event.EventType)
	}

	return nil
}
