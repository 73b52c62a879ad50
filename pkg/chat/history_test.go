package chat_test

import (
	"github.com/killallgit/chatkit/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MergeAPIMessages", func() {
	It("should merge an ai+tool run into one assistant message", func() {
		history := []chat.APIMessage{
			{Type: chat.TypeHuman, Content: "what is 6*7"},
			{Type: chat.TypeAI, ToolCalls: []chat.APIToolCall{{Name: "calculator", ID: "1"}}},
			{Type: chat.TypeTool, ToolCallID: "1", Content: "42"},
			{Type: chat.TypeAI, Content: "The answer is 42."},
		}

		messages := chat.MergeAPIMessages(history)

		Expect(messages).To(HaveLen(2))
		Expect(messages[0].Role).To(Equal(chat.RoleUser))
		Expect(messages[0].Content).To(Equal("what is 6*7"))

		assistant := messages[1]
		Expect(assistant.Role).To(Equal(chat.RoleAssistant))
		Expect(assistant.Content).To(Equal("The answer is 42."))
		Expect(assistant.ToolInvocations).To(HaveLen(1))
		Expect(assistant.ToolInvocations[0].State).To(Equal(chat.InvocationResult))
		Expect(assistant.ToolInvocations[0].ToolName).To(Equal("calculator"))
		Expect(assistant.ToolInvocations[0].Result).To(Equal("42"))
	})

	It("should bound runs at the next human message", func() {
		history := []chat.APIMessage{
			{Type: chat.TypeHuman, Content: "first"},
			{Type: chat.TypeAI, Content: "answer one"},
			{Type: chat.TypeHuman, Content: "second"},
			{Type: chat.TypeAI, Content: "answer two"},
		}

		messages := chat.MergeAPIMessages(history)

		Expect(messages).To(HaveLen(4))
		Expect(messages[1].Content).To(Equal("answer one"))
		Expect(messages[3].Content).To(Equal("answer two"))
	})

	It("should keep the final non-empty ai text", func() {
		history := []chat.APIMessage{
			{Type: chat.TypeHuman, Content: "hi"},
			{Type: chat.TypeAI, Content: "partial"},
			{Type: chat.TypeAI, Content: ""},
			{Type: chat.TypeAI, Content: "final"},
		}

		messages := chat.MergeAPIMessages(history)

		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Content).To(Equal("final"))
	})

	It("should record run ids for feedback correlation", func() {
		history := []chat.APIMessage{
			{Type: chat.TypeHuman, Content: "hi"},
			{Type: chat.TypeAI, Content: "hello", RunID: "run-7"},
		}

		messages := chat.MergeAPIMessages(history)

		Expect(messages[1].CustomData).To(HaveKeyWithValue("runId", "run-7"))
	})

	It("should skip custom entries", func() {
		history := []chat.APIMessage{
			{Type: chat.TypeHuman, Content: "hi"},
			{Type: chat.TypeCustom, CustomData: map[string]any{"followUp": []any{"x"}}},
			{Type: chat.TypeAI, Content: "hello"},
		}

		messages := chat.MergeAPIMessages(history)

		Expect(messages).To(HaveLen(2))
	})

	It("should not duplicate tool calls repeated across ai entries", func() {
		history := []chat.APIMessage{
			{Type: chat.TypeHuman, Content: "hi"},
			{Type: chat.TypeAI, ToolCalls: []chat.APIToolCall{{Name: "search", ID: "1"}}},
			{Type: chat.TypeAI, ToolCalls: []chat.APIToolCall{{Name: "search", ID: "1"}, {Name: "fetch", ID: "2"}}},
		}

		messages := chat.MergeAPIMessages(history)

		Expect(messages[1].ToolInvocations).To(HaveLen(2))
	})
})

var _ = Describe("ResolveToolInvocation", func() {
	It("should replace the matching pending call in place", func() {
		invocations := []chat.ToolInvocation{
			chat.NewToolCall("search", "1", nil),
			chat.NewToolCall("fetch", "2", nil),
		}

		result := chat.ResolveToolInvocation(invocations, chat.APIMessage{
			Type: chat.TypeTool, Name: "search", ToolCallID: "1", Content: "42",
		})

		Expect(result).To(HaveLen(2))
		Expect(result[0].State).To(Equal(chat.InvocationResult))
		Expect(result[0].ToolCallID).To(Equal("1"))
		Expect(result[1].State).To(Equal(chat.InvocationCall))
	})

	It("should preserve the call's name when the result's is generic", func() {
		invocations := []chat.ToolInvocation{chat.NewToolCall("search", "1", nil)}

		result := chat.ResolveToolInvocation(invocations, chat.APIMessage{
			Type: chat.TypeTool, ToolCallID: "1", Content: "42",
		})

		Expect(result[0].ToolName).To(Equal("search"))
	})

	It("should append the result when no matching call exists", func() {
		result := chat.ResolveToolInvocation(nil, chat.APIMessage{
			Type: chat.TypeTool, Name: "search", ToolCallID: "9", Content: "out",
		})

		Expect(result).To(HaveLen(1))
		Expect(result[0].State).To(Equal(chat.InvocationResult))
	})

	It("should unescape newline sequences in the payload", func() {
		result := chat.ResolveToolInvocation(nil, chat.APIMessage{
			Type: chat.TypeTool, Name: "search", Content: `a\nb`,
		})

		Expect(result[0].Result).To(Equal("a\nb"))
	})
})
