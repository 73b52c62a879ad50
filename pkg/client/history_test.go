package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GetHistory", func() {
	It("should post the thread and user ids and decode the messages", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/history"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["thread_id"]).To(Equal("t1"))
			Expect(body["user_id"]).To(Equal("u1"))

			json.NewEncoder(w).Encode(map[string]any{
				"messages": []chat.APIMessage{
					{Type: chat.TypeHuman, Content: "hi"},
					{Type: chat.TypeAI, Content: "hello"},
				},
			})
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		history, err := c.GetHistory(context.Background(), "t1", "u1")

		Expect(err).ToNot(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[1].Type).To(Equal(chat.TypeAI))
	})

	It("should propagate failures", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		_, err := c.GetHistory(context.Background(), "t1", "u1")

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("GetThreads", func() {
	It("should return the decoded page", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/history/threads"))
			json.NewEncoder(w).Encode(client.ThreadPage{
				Threads: []client.ThreadSummary{{ThreadID: "t1", Preview: "hi"}},
				Total:   1,
			})
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		page := c.GetThreads(context.Background(), client.ThreadQuery{UserID: "u1", Limit: 10})

		Expect(page.Threads).To(HaveLen(1))
		Expect(page.Total).To(Equal(1))
	})

	It("should resolve to an empty page when the backend fails", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		page := c.GetThreads(context.Background(), client.ThreadQuery{UserID: "u1"})

		Expect(page.Threads).To(BeEmpty())
		Expect(page.Threads).ToNot(BeNil())
		Expect(page.Total).To(BeZero())
	})
})

var _ = Describe("SendFeedback", func() {
	It("should post the run id, key and score", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/feedback"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["run_id"]).To(Equal("run-1"))
			Expect(body["key"]).To(Equal("human-feedback-stars"))
			Expect(body["score"]).To(Equal(0.8))

			json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		err := c.SendFeedback(context.Background(), "run-1", "human-feedback-stars", 0.8)

		Expect(err).ToNot(HaveOccurred())
	})

	It("should raise on failure so the caller decides", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := client.NewClientWithCache(server.URL, client.NewMetadataCache())
		err := c.SendFeedback(context.Background(), "run-1", "human-feedback-stars", 1)

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("status 400"))
	})
})
