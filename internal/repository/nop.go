package repository

import (
	"context"

	"SignalDesk/internal/domain/models"
)

// NopAlertPublisher discards alerts. Used when Kafka is disabled.
type NopAlertPublisher struct{}

func (NopAlertPublisher) Publish(context.Context, *models.AlertEvent) error { return nil }
func (NopAlertPublisher) Close() error                                      { return nil }

// NopTickPublisher discards tick records. Used when Kafka is disabled.
type NopTickPublisher struct{}

func (NopTickPublisher) PublishTick(context.Context, *models.TickRecord) error { return nil }
func (NopTickPublisher) Close() error                                          { return nil }
