package summarize_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/summarize"
)

// chatServer fakes the Ollama chat endpoint with a fixed reply.
func chatServer(reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/chat":
			resp := map[string]any{
				"message": map[string]string{"role": "assistant", "content": reply},
				"done":    true,
			}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

var _ = Describe("LLM", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	It("requires a host and a model", func() {
		_, err := summarize.NewLLM(summarize.LLMConfig{Model: "mistral"}, logger)
		Expect(err).To(HaveOccurred())

		_, err = summarize.NewLLM(summarize.LLMConfig{Host: "http://localhost:11434"}, logger)
		Expect(err).To(HaveOccurred())
	})

	It("returns the model's summary", func() {
		server := chatServer("a tight summary")
		defer server.Close()

		llm, err := summarize.NewLLM(summarize.LLMConfig{Host: server.URL, Model: "mistral"}, logger)
		Expect(err).NotTo(HaveOccurred())

		out, err := llm.Summarize(context.Background(), "lots of original text here", 50)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("a tight summary"))
	})

	It("fails on transport errors", func() {
		llm, err := summarize.NewLLM(summarize.LLMConfig{
			Host:  "http://127.0.0.1:1",
			Model: "mistral",
		}, logger)
		Expect(err).NotTo(HaveOccurred())

		_, err = llm.Summarize(context.Background(), "text", 50)
		Expect(err).To(HaveOccurred())
	})

	It("fails on an empty model reply", func() {
		server := chatServer("")
		defer server.Close()

		llm, err := summarize.NewLLM(summarize.LLMConfig{Host: server.URL, Model: "mistral"}, logger)
		Expect(err).NotTo(HaveOccurred())

		_, err = llm.Summarize(context.Background(), "text", 50)
		Expect(err).To(HaveOccurred())
	})
})
