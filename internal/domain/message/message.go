// Package message defines the mailbox Message domain entity.
package message

// Message is one entry in a receiver's mailbox. ID is assigned by the store
// and defines per-receiver FIFO order. Drained messages stay in the store
// with Read set; they are never physically deleted.
type Message struct {
	ID        int64   `json:"id"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Body      string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
	Read      bool    `json:"read"`
}

// Delivery is the wire shape handed to receivers on peek/read.
type Delivery struct {
	From      string  `json:"from"`
	Body      string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// AsDelivery converts a stored message to its receiver-facing shape.
func (m *Message) AsDelivery() Delivery {
	return Delivery{From: m.Sender, Body: m.Body, Timestamp: m.Timestamp}
}

// Deliveries converts a drained or peeked batch, preserving order.
func Deliveries(msgs []Message) []Delivery {
	out := make([]Delivery, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].AsDelivery()
	}
	return out
}
