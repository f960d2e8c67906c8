package messaging

import (
	"encoding/json"
	"sync"
)

// Message is one publish captured by Recorder
type Message struct {
	Subject string
	Payload []byte
}

// Recorder keeps published messages in memory. It encodes payloads the
// same way NATSClient does, so consumers can decode them in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Publish(subject string, data any) error {
	if r.Err != nil {
		return r.Err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.messages = append(r.messages, Message{Subject: subject, Payload: payload})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Messages returns a copy of everything published so far
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Subjects returns the subjects published so far in order
func (r *Recorder) Subjects() []string {
	msgs := r.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Subject
	}
	return out
}
