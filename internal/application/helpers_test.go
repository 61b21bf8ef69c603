package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/homevisit/internal/notify"
)

type sequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *sequentialIDs) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

func (s *sequentialIDs) issued() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, s.n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", s.prefix, i+1)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingNotifier) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
