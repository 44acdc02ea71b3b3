package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sudo-OMsharma/personabrain/pkg/blob/local"
	"github.com/sudo-OMsharma/personabrain/pkg/brain"
	"github.com/sudo-OMsharma/personabrain/pkg/classify"
	"github.com/sudo-OMsharma/personabrain/pkg/ingest"
	"github.com/sudo-OMsharma/personabrain/pkg/ledger"
	"github.com/sudo-OMsharma/personabrain/pkg/logger"
	"github.com/sudo-OMsharma/personabrain/pkg/retrieval"
	testutils "github.com/sudo-OMsharma/personabrain/pkg/utils/test"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

type reply struct {
	Success string          `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

var _ = Describe("Server", func() {
	var (
		server    *Server
		cache     *brain.Cache
		ingestor  *ingest.Service
		generator *testutils.MockGenerator
	)

	postForm := func(path string, form url.Values) (*http.Response, reply) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var r reply
		Expect(json.Unmarshal(body, &r)).To(Succeed())
		return resp, r
	}

	uploadFiles := func(brainName string, files map[string]string) (*http.Response, reply) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		Expect(writer.WriteField("brainName", brainName)).To(Succeed())
		for name, content := range files {
			part, err := writer.CreateFormFile("files", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte(content))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(writer.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var r reply
		Expect(json.Unmarshal(body, &r)).To(Succeed())
		return resp, r
	}

	createBrain := func(name, personality string) {
		resp, _ := postForm("/createbrains", url.Values{
			"brainName":        {name},
			"personality_name": {personality},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	}

	BeforeEach(func() {
		store, err := local.NewStore(GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ledgers, err := ledger.NewStore(GinkgoT().TempDir(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		factory := testutils.NewMockFactory()
		cache, err = brain.NewCache(brain.Config{
			Store:       store,
			Factory:     factory,
			Ledgers:     ledgers,
			CacheDir:    GinkgoT().TempDir(),
			IndexPrefix: "master-index",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		events := testutils.NewRecordingPublisher()
		ingestor, err = ingest.NewService(ingest.Config{
			Cache:       cache,
			Store:       store,
			Factory:     factory,
			Ledgers:     ledgers,
			Events:      events,
			IndexPrefix: "master-index",
			DocPrefix:   "master-doc",
			WorkDir:     GinkgoT().TempDir(),
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		generator = testutils.NewMockGenerator()
		classifier := classify.New(generator, logger.Nop())
		asker := retrieval.New(cache, generator, classifier, events, logger.Nop())

		server = NewServer(Config{ListenAddr: ":0"}, ingestor, asker, cache, logger.Nop())
	})

	Describe("GET /ping", func() {
		It("answers pong", func() {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(body))).To(Equal(`"pong"`))
		})
	})

	Describe("POST /createbrains", func() {
		It("creates a brain", func() {
			resp, r := postForm("/createbrains", url.Values{
				"brainName":        {"acme"},
				"personality_name": {"Nova"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(r.Success).To(Equal("true"))
			Expect(r.Message).To(Equal("Brain created successfully!"))
		})

		It("rejects invalid personality names", func() {
			resp, r := postForm("/createbrains", url.Values{
				"brainName":        {"acme"},
				"personality_name": {"nova42"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(r.Success).To(Equal("false"))
		})

		It("conflicts on duplicate names", func() {
			createBrain("acme", "nova")
			resp, _ := postForm("/createbrains", url.Values{
				"brainName":        {"acme"},
				"personality_name": {"vega"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})
	})

	Describe("POST /upload", func() {
		BeforeEach(func() {
			createBrain("acme", "nova")
		})

		It("returns per-file statuses", func() {
			resp, r := uploadFiles("acme", map[string]string{
				"intro.txt": "alpha beta gamma",
				"image.png": "binary junk",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(r.Message).To(Equal("Upload finished!"))

			var statuses []ingest.FileStatus
			Expect(json.Unmarshal(r.Data, &statuses)).To(Succeed())

			byName := map[string]string{}
			for _, st := range statuses {
				byName[st.Filename] = st.Status
			}
			Expect(byName["intro.txt"]).To(Equal(ingest.StatusProcessed))
			Expect(byName["image.png"]).To(Equal(ingest.StatusUnsupportedFormat))
		})

		It("404s for an unknown brain", func() {
			resp, _ := uploadFiles("ghost", map[string]string{"intro.txt": "alpha"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("400s when no files are attached", func() {
			resp, _ := uploadFiles("acme", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /chatbot", func() {
		BeforeEach(func() {
			createBrain("acme", "nova")
			_, r := uploadFiles("acme", map[string]string{
				"intro.txt": "nova is a helpful assistant who likes the sea",
			})
			Expect(r.Success).To(Equal("true"))
		})

		It("generates an answer with emotion and voice settings", func() {
			generator.Reply = "I love the sea."
			generator.Label = "joy"

			resp, r := postForm("/chatbot", url.Values{
				"llm":                   {"openai"},
				"brainName":             {"acme"},
				"current_user_question": {"What do you love?"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(r.Message).To(Equal("Response Generated Successfully!"))

			var answer retrieval.Answer
			Expect(json.Unmarshal(r.Data, &answer)).To(Succeed())
			Expect(answer.Answer).To(Equal("I love the sea."))
			Expect(answer.Emotion).To(Equal("joy"))
			Expect(answer.VoiceSettings.Style).To(BeNumerically("==", 0.9))
		})

		It("requires the llm form field", func() {
			resp, r := postForm("/chatbot", url.Values{
				"brainName":             {"acme"},
				"current_user_question": {"hello"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(r.Success).To(Equal("false"))
		})

		It("only accepts openai as the llm", func() {
			resp, r := postForm("/chatbot", url.Values{
				"llm":                   {"anthropic"},
				"brainName":             {"acme"},
				"current_user_question": {"hello"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(r.Message).To(Equal("llm value should be openai!"))
		})

		It("rejects a non-numeric word limit", func() {
			resp, _ := postForm("/chatbot", url.Values{
				"llm":                   {"openai"},
				"brainName":             {"acme"},
				"current_user_question": {"hello"},
				"word_limit":            {"lots"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("404s for an unknown brain", func() {
			resp, _ := postForm("/chatbot", url.Values{
				"llm":                   {"openai"},
				"brainName":             {"ghost"},
				"current_user_question": {"hello"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("clears the cache via the clear control form", func() {
			_, _ = postForm("/chatbot", url.Values{
				"llm":                   {"openai"},
				"brainName":             {"acme"},
				"current_user_question": {"warm the cache"},
			})
			Expect(cache.Snapshot()).NotTo(BeEmpty())

			resp, r := postForm("/chatbot", url.Values{
				"clear":     {"True"},
				"brainName": {"acme"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(r.Message).To(Equal("Cleared!"))
			Expect(cache.Snapshot()).To(BeEmpty())
		})

		It("displays the cache via the display control form", func() {
			resp, r := postForm("/chatbot", url.Values{"display": {"True"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(r.Message).To(Equal("Displayed!"))
		})
	})

	Describe("POST /deletefile", func() {
		BeforeEach(func() {
			createBrain("acme", "nova")
			_, r := uploadFiles("acme", map[string]string{"intro.txt": "alpha beta"})
			Expect(r.Success).To(Equal("true"))
		})

		It("deletes a present file and reports absent ones", func() {
			resp, r := postForm("/deletefile", url.Values{
				"brainName":  {"acme"},
				"file_names": {"intro.txt", "ghost.txt"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(r.Data)).To(ContainSubstring("intro.txt"))
			Expect(string(r.Data)).To(ContainSubstring("ghost.txt"))
		})

		It("404s when nothing was deleted", func() {
			resp, r := postForm("/deletefile", url.Values{
				"brainName":  {"acme"},
				"file_names": {"ghost.txt"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(r.Message).To(Equal("File not Found!"))
		})
	})

	Describe("POST /deletebrain", func() {
		It("deletes an existing brain", func() {
			createBrain("acme", "nova")
			resp, r := postForm("/deletebrain", url.Values{"brainName": {"acme"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(r.Message).To(Equal("Brain deleted successfully!"))
		})

		It("404s for an unknown brain", func() {
			resp, _ := postForm("/deletebrain", url.Values{"brainName": {"ghost"}})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /renamebrain", func() {
		It("renames a brain", func() {
			createBrain("acme", "nova")
			resp, r := postForm("/renamebrain", url.Values{
				"old_brainName": {"acme"},
				"new_brainName": {"globex"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(r.Message).To(Equal("Brain renamed successfully!"))
		})

		It("409s when the new name is taken", func() {
			createBrain("acme", "nova")
			createBrain("globex", "vega")
			resp, _ := postForm("/renamebrain", url.Values{
				"old_brainName": {"acme"},
				"new_brainName": {"globex"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})
	})

	Describe("POST /deleteram", func() {
		It("clears everything without a brain name", func() {
			resp, r := postForm("/deleteram", url.Values{})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(r.Message).To(Equal("Cleared!"))
		})

		It("404s for a brain that is not loaded", func() {
			resp, r := postForm("/deleteram", url.Values{"brainName": {"ghost"}})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(r.Message).To(Equal("Brain not present!"))
		})

		It("evicts a loaded brain", func() {
			createBrain("acme", "nova")
			_, r := uploadFiles("acme", map[string]string{"intro.txt": "alpha"})
			Expect(r.Success).To(Equal("true"))

			_, _ = postForm("/chatbot", url.Values{
				"llm":                   {"openai"},
				"brainName":             {"acme"},
				"current_user_question": {"warm the cache"},
			})
			Expect(cache.Snapshot()).NotTo(BeEmpty())

			resp, _ := postForm("/deleteram", url.Values{"brainName": {"acme"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(cache.Snapshot()).To(BeEmpty())
		})
	})

	Describe("GET /membrains", func() {
		It("returns the loaded brains", func() {
			req := httptest.NewRequest(http.MethodGet, "/membrains", nil)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /testurl", func() {
		It("echoes the url back", func() {
			resp, r := postForm("/testurl", url.Values{"url-test": {"https://example.com"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var data map[string]string
			Expect(json.Unmarshal(r.Data, &data)).To(Succeed())
			Expect(data["url"]).To(Equal("https://example.com"))
		})

		It("requires a url", func() {
			resp, r := postForm("/testurl", url.Values{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(r.Message).To(Equal("URL required!"))
		})
	})
})
