package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/ingest"
	"github.com/sudo-OMsharma/personabrain/pkg/retrieval"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateBrain provisions a new brain with a personality name.
func (s *Server) handleCreateBrain(c *fiber.Ctx) error {
	brainName := c.FormValue("brainName")
	personalityName := c.FormValue("personality_name")

	if err := s.ingestor.CreateBrain(c.Context(), brainName, personalityName); err != nil {
		return sendError(c, statusFor(err), []string{err.Error()}, "Failed to create Brain!")
	}

	return sendResponse(c, fiber.StatusCreated,
		[]string{"Brain is successfully created in the storage system"},
		"Brain created successfully!",
	)
}

// handleUpload ingests one or more uploaded files into a brain. Each file
// gets its own status; the request only fails as a whole when the brain is
// missing or persistence fails.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	brainName := c.FormValue("brainName")

	form, err := c.MultipartForm()
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, []string{err.Error()}, "Multipart form required!")
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return sendError(c, fiber.StatusBadRequest, []string{"Empty parameter: files"}, "No files provided!")
	}

	spool, err := os.MkdirTemp("", "upload-*")
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, []string{err.Error()}, "Failed to process upload!")
	}
	defer os.RemoveAll(spool)

	files := make([]ingest.UploadFile, 0, len(headers))
	for i, header := range headers {
		dest := filepath.Join(spool, fmt.Sprintf("%d-%s", i, filepath.Base(header.Filename)))
		if err := c.SaveFile(header, dest); err != nil {
			return sendError(c, fiber.StatusInternalServerError, []string{err.Error()}, "Failed to process upload!")
		}
		files = append(files, ingest.UploadFile{Name: header.Filename, Path: dest})
	}

	statuses, err := s.ingestor.Upload(c.Context(), brainName, files)
	if err != nil {
		return sendError(c, statusFor(err), []string{err.Error()}, "Failed to upload files!")
	}

	return sendResponse(c, fiber.StatusCreated, statuses, "Upload finished!")
}

// handleChatbot answers a question against a brain. The same endpoint also
// carries the runtime control forms: clear evicts one or all brains from
// memory, display returns the current cache contents.
func (s *Server) handleChatbot(c *fiber.Ctx) error {
	brainName := c.FormValue("brainName")

	if c.FormValue("clear") == "True" {
		if brainName == "" {
			s.cache.EvictAll()
			return sendResponse(c, fiber.StatusOK, "Cleared brain cache completely", "Cleared!")
		}
		s.cache.Evict(brainName)
		return sendResponse(c, fiber.StatusOK, fmt.Sprintf("Cleared %s from brain cache", brainName), "Cleared!")
	}

	if c.FormValue("display") == "True" {
		return sendResponse(c, fiber.StatusOK, s.cache.Snapshot(), "Displayed!")
	}

	llmName := c.FormValue("llm")
	if strings.TrimSpace(llmName) == "" {
		return sendError(c, fiber.StatusBadRequest,
			[]string{"llm parameter's value is empty, it should only be openai"},
			"Value of llm parameter cannot be empty, it should be openai!",
		)
	}
	if llmName != "openai" {
		return sendError(c, fiber.StatusBadRequest,
			[]string{"llm value should only be openai"},
			"llm value should be openai!",
		)
	}

	wordLimit := 0
	if raw := c.FormValue("word_limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest,
				[]string{"word_limit must be a number"},
				"Invalid word_limit!",
			)
		}
		wordLimit = parsed
	}

	answer, err := s.asker.Ask(c.Context(), retrieval.AskRequest{
		BrainName:        brainName,
		Question:         c.FormValue("current_user_question"),
		WordLimit:        wordLimit,
		MaskToxicity:     strings.EqualFold(c.FormValue("toxic_filter"), "true"),
		PreviousQuestion: c.FormValue("previous_question"),
		PreviousAnswer:   c.FormValue("previous_answer"),
	})
	if err != nil {
		s.logger.Error("chat failed",
			zap.String("brain", brainName),
			zap.Error(err),
		)
		return sendError(c, statusFor(err), []string{err.Error()}, "Unable to generate response!")
	}

	return sendResponse(c, fiber.StatusOK, answer, "Response Generated Successfully!")
}

// handleDeleteFile removes named files from a brain, reporting which were
// deleted and which were never there.
func (s *Server) handleDeleteFile(c *fiber.Ctx) error {
	brainName := c.FormValue("brainName")
	fileNames := formList(c, "file_names")

	result, err := s.ingestor.DeleteFiles(c.Context(), brainName, fileNames)
	if err != nil {
		return sendError(c, statusFor(err), []string{err.Error()}, "Failed to delete files!")
	}

	if len(result.Deleted) == 0 && len(result.NotPresent) > 0 {
		return sendError(c, fiber.StatusNotFound,
			[]string{"Not present: " + strings.Join(result.NotPresent, ", ")},
			"File not Found!",
		)
	}

	message := "Deleted successfully: " + strings.Join(result.Deleted, ", ")
	if len(result.NotPresent) > 0 {
		message += ". Not present: " + strings.Join(result.NotPresent, ", ")
	}
	return sendResponse(c, fiber.StatusOK, []string{message}, "Operation completed successfully!")
}

// handleDeleteBrain removes a brain and everything it owns.
func (s *Server) handleDeleteBrain(c *fiber.Ctx) error {
	brainName := c.FormValue("brainName")

	if err := s.ingestor.DeleteBrain(c.Context(), brainName); err != nil {
		return sendError(c, statusFor(err), []string{err.Error()}, "Failed to delete Brain!")
	}

	return sendResponse(c, fiber.StatusOK,
		[]string{"Brain deleted from the storage system"},
		"Brain deleted successfully!",
	)
}

// handleRenameBrain moves a brain to a new name.
func (s *Server) handleRenameBrain(c *fiber.Ctx) error {
	oldName := c.FormValue("old_brainName")
	newName := c.FormValue("new_brainName")

	if err := s.ingestor.RenameBrain(c.Context(), oldName, newName); err != nil {
		return sendError(c, statusFor(err), []string{err.Error()}, "Failed to rename Brain!")
	}

	return sendResponse(c, fiber.StatusOK,
		[]string{fmt.Sprintf("Brain %s renamed to %s", oldName, newName)},
		"Brain renamed successfully!",
	)
}

// handleDeleteRAM evicts brains from the runtime cache. Without a brainName
// it clears everything; with one it evicts that brain or reports it absent.
func (s *Server) handleDeleteRAM(c *fiber.Ctx) error {
	brainName := c.FormValue("brainName")

	if brainName == "" {
		s.cache.EvictAll()
		return sendResponse(c, fiber.StatusOK, []string{"All brain indexes removed from memory."}, "Cleared!")
	}

	if !s.cache.Evict(brainName) {
		return sendError(c, fiber.StatusNotFound,
			[]string{fmt.Sprintf("Runtime index for '%s' not present in memory.", brainName)},
			"Brain not present!",
		)
	}

	return sendResponse(c, fiber.StatusOK,
		[]string{fmt.Sprintf("Runtime index for '%s' deleted from memory.", brainName)},
		"Cleared!",
	)
}

// handleMemBrains returns the brains currently loaded in the cache.
func (s *Server) handleMemBrains(c *fiber.Ctx) error {
	return sendResponse(c, fiber.StatusOK, s.cache.Snapshot(), "Displayed!")
}

// handleTestURL echoes back a URL, the service's connectivity smoke test.
func (s *Server) handleTestURL(c *fiber.Ctx) error {
	inputURL := c.FormValue("url-test")
	if strings.TrimSpace(inputURL) == "" {
		return sendError(c, fiber.StatusBadRequest, []string{"Empty Parameter: input_url"}, "URL required!")
	}

	return sendResponse(c, fiber.StatusOK, map[string]string{"url": inputURL}, "URL processed successfully!")
}

// formList reads a repeated form field from either a multipart or a
// urlencoded body.
func formList(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		if values, ok := form.Value[key]; ok && len(values) > 0 {
			return values
		}
	}

	var values []string
	for _, v := range c.Context().PostArgs().PeekMulti(key) {
		values = append(values, string(v))
	}
	return values
}
