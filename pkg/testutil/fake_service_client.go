// Package testutil provides fakes for exercising the session manager
// without a backend.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/client"
	"github.com/killallgit/chatkit/pkg/events"
)

// FakeServiceClient implements session.ServiceClient with scripted
// responses. Each Stream call replays the next scripted event sequence.
type FakeServiceClient struct {
	mu sync.Mutex

	Base     string
	Metadata *client.Metadata

	// Scripts are consumed one per Stream call; the last one repeats.
	Scripts   [][]events.Event
	StreamErr error

	// Hold, when set, delays script playback until it is closed, keeping
	// the stream in flight for concurrency tests.
	Hold chan struct{}

	History    []chat.APIMessage
	HistoryErr error
	Threads    client.ThreadPage
	ThreadsErr error

	FeedbackErr error

	StreamCalls   int
	MetadataCalls int
	CancelCalls   int
	FeedbackRuns  []string

	// LastRequest records the body of the most recent Stream call.
	LastAgent   string
	LastRequest client.StreamRequest

	cancel context.CancelFunc
}

// NewFakeServiceClient returns a fake advertising a single "chatbot" agent.
func NewFakeServiceClient(scripts ...[]events.Event) *FakeServiceClient {
	return &FakeServiceClient{
		Base: "https://fake.test",
		Metadata: &client.Metadata{
			Agents:       []client.AgentInfo{{Key: "chatbot", Description: "test agent"}},
			Models:       []string{"fake-model"},
			DefaultAgent: "chatbot",
			DefaultModel: "fake-model",
		},
		Scripts: scripts,
	}
}

func (f *FakeServiceClient) BaseURL() string {
	return f.Base
}

func (f *FakeServiceClient) GetMetadata(ctx context.Context, force bool) (*client.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MetadataCalls++
	if f.Metadata == nil {
		return nil, errors.New("metadata unavailable")
	}
	return f.Metadata, nil
}

func (f *FakeServiceClient) Stream(ctx context.Context, agent string, req client.StreamRequest) (<-chan events.Event, error) {
	f.mu.Lock()
	f.StreamCalls++
	f.LastAgent = agent
	f.LastRequest = req
	script := []events.Event{events.Done}
	if len(f.Scripts) > 0 {
		script = f.Scripts[0]
		if len(f.Scripts) > 1 {
			f.Scripts = f.Scripts[1:]
		}
	}
	err := f.StreamErr
	hold := f.Hold
	streamCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan events.Event, len(script))
	go func() {
		defer close(out)
		if hold != nil {
			select {
			case <-hold:
			case <-streamCtx.Done():
				return
			}
		}
		for _, event := range script {
			select {
			case out <- event:
			case <-streamCtx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *FakeServiceClient) CancelStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CancelCalls++
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *FakeServiceClient) GetHistory(ctx context.Context, threadID, userID string) ([]chat.APIMessage, error) {
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	return f.History, nil
}

func (f *FakeServiceClient) GetThreads(ctx context.Context, query client.ThreadQuery) client.ThreadPage {
	if f.ThreadsErr != nil {
		return client.ThreadPage{Threads: []client.ThreadSummary{}}
	}
	return f.Threads
}

func (f *FakeServiceClient) SendFeedback(ctx context.Context, runID, key string, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FeedbackErr != nil {
		return f.FeedbackErr
	}
	f.FeedbackRuns = append(f.FeedbackRuns, runID)
	return nil
}
