package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/killallgit/chatkit/pkg/client"
	"github.com/killallgit/chatkit/pkg/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// sseServer replays the given frame bodies as data: lines followed by the
// terminal sentinel.
func sseServer(frames ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Expect(r.Method).To(Equal("POST"))
		Expect(r.URL.Path).To(Equal("/chatbot/stream"))

		var req client.StreamRequest
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func collect(stream <-chan events.Event) []events.Event {
	var out []events.Event
	for event := range stream {
		out = append(out, event)
	}
	return out
}

var _ = Describe("Stream", func() {
	It("should yield normalized events ending with done", func() {
		server := sseServer(
			`{"type":"token","content":"H"}`,
			`{"type":"token","content":"Hi"}`,
		)
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		stream, err := c.Stream(context.Background(), "chatbot", client.StreamRequest{Message: "hi", StreamTokens: true})
		Expect(err).ToNot(HaveOccurred())

		received := collect(stream)
		Expect(received).To(HaveLen(3))
		Expect(received[0].Kind).To(Equal(events.KindToken))
		Expect(received[0].Content).To(Equal("H"))
		Expect(received[1].Content).To(Equal("Hi"))
		Expect(received[2].Kind).To(Equal(events.KindDone))
	})

	It("should skip malformed frames without ending the stream", func() {
		server := sseServer(
			`{"type":"token","content":"A"}`,
			`{not json`,
			`{"type":"unknown-kind"}`,
			`{"type":"token","content":"AB"}`,
		)
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		stream, err := c.Stream(context.Background(), "chatbot", client.StreamRequest{Message: "hi"})
		Expect(err).ToNot(HaveOccurred())

		received := collect(stream)
		Expect(received).To(HaveLen(3))
		Expect(received[1].Content).To(Equal("AB"))
		Expect(received[2].Kind).To(Equal(events.KindDone))
	})

	It("should return an error on a non-200 response", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "agent not found", http.StatusNotFound)
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		_, err := c.Stream(context.Background(), "chatbot", client.StreamRequest{Message: "hi"})

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("status 404"))
	})

	It("should close cleanly on cancellation without an error event", func() {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"H\"}\n\n")
			flusher.Flush()
			<-release
		}))
		defer server.Close()
		defer close(release)

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		stream, err := c.Stream(context.Background(), "chatbot", client.StreamRequest{Message: "hi"})
		Expect(err).ToNot(HaveOccurred())

		Eventually(stream).Should(Receive())
		c.CancelStream()

		var received []events.Event
		for event := range stream {
			received = append(received, event)
		}
		for _, event := range received {
			Expect(event.Kind).ToNot(Equal(events.KindError))
		}
	})

	It("should forward server error frames as error events", func() {
		server := sseServer(`{"type":"error","content":"model exploded"}`)
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		stream, err := c.Stream(context.Background(), "chatbot", client.StreamRequest{Message: "hi"})
		Expect(err).ToNot(HaveOccurred())

		received := collect(stream)
		Expect(received[0].Kind).To(Equal(events.KindError))
		Expect(received[0].Content).To(Equal("model exploded"))
	})
})
