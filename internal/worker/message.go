package worker

import "github.com/cuongbtq/interpreter-booking/internal/outbox"

// Message is one decoded delivery waiting for a pool goroutine
type Message struct {
	Envelope    *outbox.Envelope
	DeliveryTag uint64
	Redelivered bool
}
