package network

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTTPSource observes connectivity by polling an HTTP endpoint on an
// interval and emitting a State to subscribers whenever reachability flips.
type HTTPSource struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      *zap.SugaredLogger

	mu     sync.Mutex
	subs   map[int]func(State)
	nextID int
	last   *bool

	startPoll sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewHTTPSource creates a source polling url every interval.
func NewHTTPSource(url string, interval time.Duration, log *zap.SugaredLogger) *HTTPSource {
	return &HTTPSource{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
		subs:     make(map[int]func(State)),
		stopCh:   make(chan struct{}),
	}
}

// Fetch performs a one-shot reachability probe.
func (s *HTTPSource) Fetch(ctx context.Context) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return State{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Unreachable, not an error: the probe answered the question.
		return State{IsConnected: false}, nil
	}
	defer resp.Body.Close()

	return State{IsConnected: resp.StatusCode < http.StatusInternalServerError}, nil
}

// Subscribe registers fn and starts the polling loop on first use.
// The returned function removes the subscription.
func (s *HTTPSource) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	s.startPoll.Do(func() {
		s.wg.Add(1)
		go s.pollLoop()
	})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Stop terminates the polling loop.
func (s *HTTPSource) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *HTTPSource) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
			state, err := s.Fetch(ctx)
			cancel()
			if err != nil {
				s.log.Warnw("connectivity probe failed", "error", err)
				continue
			}
			s.publish(state)
		}
	}
}

// publish notifies subscribers when reachability changed since last poll.
func (s *HTTPSource) publish(state State) {
	s.mu.Lock()
	changed := s.last == nil || *s.last != state.IsConnected
	connected := state.IsConnected
	s.last = &connected

	var fns []func(State)
	if changed {
		fns = make([]func(State), 0, len(s.subs))
		for _, fn := range s.subs {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
