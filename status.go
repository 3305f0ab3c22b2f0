package main

import (
	"context"
	"fmt"

	"doorsync/indicator"
	"doorsync/mqtt"
)

// statusPublisher mirrors indicator events onto the broker.
type statusPublisher struct {
	mqtt *mqtt.Client
}

// Signal implements indicator.Indicator.Signal.
func (s *statusPublisher) Signal(_ context.Context, ev indicator.Event) {
	topic := mqtt.StatusTopic(s.mqtt.ClientID(), "event")
	s.mqtt.Publish(topic, fmt.Sprintf(`{"event":"%s"}`, ev))
}

// Release implements indicator.Indicator.Release.
func (s *statusPublisher) Release() error {
	return nil
}
