package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fmueller/voxnotes/internal/audio"
	"github.com/fmueller/voxnotes/internal/config"
	"github.com/fmueller/voxnotes/internal/minutes"
	"github.com/fmueller/voxnotes/internal/subtitle"
	"github.com/fmueller/voxnotes/internal/transcriber"
	"github.com/fmueller/voxnotes/internal/whisper"
)

// Machine-readable error kinds surfaced to the UI.
const (
	kindUnsupportedFormat = "unsupported_format"
	kindInvalidOption     = "invalid_option"
	kindDecodeError       = "decode_error"
	kindSegmentError      = "transcription_error"
	kindCancelled         = "cancelled"
	kindInternal          = "internal"
)

// ModelResolver maps a tier name to a local weights path, downloading
// when allowed. Injected so tests never touch the network.
type ModelResolver func(ctx context.Context, tier string) (string, error)

type Server struct {
	cfg          config.Config
	logger       *zap.Logger
	transcriber  *transcriber.Transcriber
	minutes      *minutes.Generator
	registry     *Registry
	uploadDir    string
	resolveModel ModelResolver
	app          *fiber.App
}

type Options struct {
	Config       config.Config
	Logger       *zap.Logger
	Transcriber  *transcriber.Transcriber
	Minutes      *minutes.Generator
	UploadDir    string
	ResolveModel ModelResolver
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:          opts.Config,
		logger:       logger,
		transcriber:  opts.Transcriber,
		minutes:      opts.Minutes,
		registry:     NewRegistry(),
		uploadDir:    opts.UploadDir,
		resolveModel: opts.ResolveModel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voxnotes",
		BodyLimit:             (opts.Config.Server.MaxUploadMB + 1) * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Get("/", s.handleIndex)
	app.Get("/healthz", s.handleHealth)
	app.Post("/api/transcriptions", s.handleUpload)
	app.Get("/api/transcriptions/:id", s.handleStatus)
	app.Delete("/api/transcriptions/:id", s.handleCancel)
	app.Post("/api/extract", s.handleExtract)
	app.Post("/api/minutes", s.handleMinutes)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/transcriptions/:id", websocket.New(s.handleProgressSocket))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Bind, s.cfg.Server.Port)
	s.logger.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexPage)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, kindInvalidOption, "missing file field")
	}

	if !audio.SupportedFormat(header.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, kindUnsupportedFormat,
			fmt.Sprintf("unsupported file type; accepted: %s", strings.Join(audio.SupportedExtensions(), ", ")))
	}

	maxBytes := int64(s.cfg.Server.MaxUploadMB) * 1024 * 1024
	if header.Size > maxBytes {
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, kindInvalidOption,
			fmt.Sprintf("file exceeds %d MB limit", s.cfg.Server.MaxUploadMB))
	}

	language := c.FormValue("language", s.cfg.Transcribe.Language)
	if !s.cfg.Transcribe.SupportsLanguage(language) {
		return errorJSON(c, fiber.StatusBadRequest, kindInvalidOption,
			fmt.Sprintf("unsupported language %q", language))
	}

	tier := c.FormValue("model", s.cfg.Transcribe.Model)
	if _, ok := whisper.LookupTier(tier); !ok {
		return errorJSON(c, fiber.StatusBadRequest, kindInvalidOption,
			fmt.Sprintf("unknown model tier %q (known: %s)", tier, strings.Join(whisper.TierNames(), ", ")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := newJob(header.Filename, cancel)

	uploadPath := filepath.Join(s.uploadDir, job.ID+strings.ToLower(filepath.Ext(header.Filename)))
	if err := c.SaveFile(header, uploadPath); err != nil {
		cancel()
		return errorJSON(c, fiber.StatusInternalServerError, kindInternal, "failed to store upload")
	}

	s.registry.Add(job)
	s.logger.Info("upload accepted",
		zap.String("job", job.ID),
		zap.String("file", header.Filename),
		zap.Int64("bytes", header.Size),
		zap.String("language", language),
		zap.String("model", tier),
	)

	go s.runJob(ctx, cancel, job, uploadPath, language, tier)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": job.ID})
}

func (s *Server) runJob(ctx context.Context, cancel context.CancelFunc, job *Job, uploadPath, language, tier string) {
	defer cancel()
	defer func() {
		if err := os.Remove(uploadPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove upload", zap.String("path", uploadPath), zap.Error(err))
		}
	}()

	modelPath, err := s.resolveModel(ctx, tier)
	if err != nil {
		s.failJob(job, fmt.Errorf("resolve model %q: %w", tier, err))
		return
	}

	result, err := s.transcriber.Transcribe(ctx, uploadPath, job.Filename, transcriber.Options{
		Language:  language,
		ModelPath: modelPath,
	}, job.progress)
	if err != nil {
		s.failJob(job, err)
		return
	}

	job.finish(JobDone, result.Text, result.Language, "", "")
	s.logger.Info("job finished",
		zap.String("job", job.ID),
		zap.Int("segments", result.Segments),
		zap.String("language", result.Language),
	)
}

func (s *Server) failJob(job *Job, err error) {
	kind := errorKind(err)
	state := JobFailed
	if kind == kindCancelled {
		state = JobCancelled
	}
	job.finish(state, "", "", err.Error(), kind)
	s.logger.Warn("job failed", zap.String("job", job.ID), zap.String("kind", kind), zap.Error(err))
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	job, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, kindInternal, "unknown job")
	}

	snapshot := job.Snapshot()
	return c.JSON(fiber.Map{
		"id":         job.ID,
		"filename":   job.Filename,
		"state":      snapshot.State,
		"completed":  snapshot.Completed,
		"total":      snapshot.Total,
		"text":       snapshot.Text,
		"language":   snapshot.Language,
		"error":      snapshot.Error,
		"error_kind": snapshot.ErrorKind,
	})
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	job, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, kindInternal, "unknown job")
	}

	job.Cancel()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": job.ID})
}

func (s *Server) handleProgressSocket(conn *websocket.Conn) {
	defer conn.Close()

	job, ok := s.registry.Get(conn.Params("id"))
	if !ok {
		_ = conn.WriteJSON(fiber.Map{"error": "unknown job"})
		return
	}

	for event := range job.Subscribe() {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, kindInvalidOption, "missing file field")
	}

	f, err := header.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, kindInternal, "failed to read upload")
	}
	defer f.Close()

	text, err := subtitle.ExtractText(header.Filename, f)
	if err != nil {
		if errors.Is(err, subtitle.ErrNotVTT) {
			return errorJSON(c, fiber.StatusBadRequest, kindUnsupportedFormat, "file is not valid WebVTT")
		}
		return errorJSON(c, fiber.StatusBadRequest, kindUnsupportedFormat, err.Error())
	}

	return c.JSON(fiber.Map{"text": text})
}

type minutesRequest struct {
	Transcript string `json:"transcript"`
	Template   string `json:"template"`
}

func (s *Server) handleMinutes(c *fiber.Ctx) error {
	if s.minutes == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, kindInvalidOption, "minutes generation is not configured")
	}

	var req minutesRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, kindInvalidOption, "invalid request body")
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return errorJSON(c, fiber.StatusBadRequest, kindInvalidOption, "transcript is empty")
	}

	generated, err := s.minutes.Generate(c.Context(), req.Transcript, req.Template)
	if err != nil {
		return errorJSON(c, fiber.StatusBadGateway, kindInternal, err.Error())
	}

	return c.JSON(fiber.Map{"minutes": generated})
}

func errorJSON(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message, "error_kind": kind})
}

func errorKind(err error) string {
	var segErr *transcriber.SegmentError
	switch {
	case errors.Is(err, context.Canceled):
		return kindCancelled
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return kindUnsupportedFormat
	case errors.Is(err, transcriber.ErrInvalidOption):
		return kindInvalidOption
	case errors.Is(err, audio.ErrDecode):
		return kindDecodeError
	case errors.As(err, &segErr):
		return kindSegmentError
	default:
		return kindInternal
	}
}
