package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ironsheep/perspective-mcp/internal/imaging"
	"github.com/ironsheep/perspective-mcp/internal/perspective"
	"github.com/ironsheep/perspective-mcp/internal/storage"
)

const maxUploadBytes = 32 << 20

// Server is the HTTP front end for a Corrector.
type Server struct {
	app       *fiber.App
	corrector *perspective.Corrector
	defaults  perspective.Config
	store     storage.Store
	metrics   http.Handler
	logger    *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore saves results when the request sets save=true and serves them
// from /v1/results.
func WithStore(st storage.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger replaces the default standard logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the fiber application and registers all routes.
func New(corrector *perspective.Corrector, defaults perspective.Config, opts ...Option) *Server {
	s := &Server{
		corrector: corrector,
		defaults:  defaults,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "perspective-mcp",
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())

	s.app.Get("/health", s.health)
	s.app.Post("/v1/correct", s.correct)
	s.app.Get("/v1/results/:name", s.result)
	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}
	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Printf("HTTP API listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type correctResponse struct {
	perspective.Outcome
	Orientation string               `json:"orientation"`
	Error       string               `json:"error,omitempty"`
	Image       *imaging.ImageResult `json:"image"`
	SavedPath   string               `json:"saved_path,omitempty"`
	ResultURL   string               `json:"result_url,omitempty"`
}

func (s *Server) correct(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "missing image file field")
	}
	f, err := fh.Open()
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "failed to read upload")
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "failed to read upload")
	}

	img, _, err := imaging.DecodeBytes(data)
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	cfg, err := s.requestConfig(c)
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return errJSON(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	orientation := perspective.ParseOrientation(c.FormValue("orientation", "up"))
	if formBool(c, "apply_orientation") {
		img = imaging.ApplyOrientation(img, orientation)
		orientation = perspective.OrientationUp
	}

	out, err := s.corrector.Correct(img, orientation, cfg)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, perspective.ErrInvalidImage) {
			status = fiber.StatusUnprocessableEntity
		}
		return errJSON(c, status, err.Error())
	}

	encoded, err := imaging.EncodePNG(out.Image)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	resp := correctResponse{
		Outcome:     out,
		Orientation: orientation.String(),
		Image:       encoded,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}

	if formBool(c, "save") && s.store != nil {
		name := storage.NewName("corrected", "png")
		path, err := s.store.Save(c.UserContext(), name, out.Image)
		if err != nil {
			s.logger.Printf("[%s] Failed to save result: %v", out.RunID, err)
			return errJSON(c, fiber.StatusInternalServerError, err.Error())
		}
		resp.SavedPath = path
		resp.ResultURL = "/v1/results/" + name
	}

	return c.JSON(resp)
}

// result serves a previously saved correction.
func (s *Server) result(c *fiber.Ctx) error {
	if s.store == nil {
		return errJSON(c, fiber.StatusNotFound, "result storage is disabled")
	}
	name := c.Params("name")

	ok, err := s.store.Exists(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			return errJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	if !ok {
		return errJSON(c, fiber.StatusNotFound, "result not found")
	}

	rc, err := s.store.GetReader(c.UserContext(), name)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	c.Type(filepath.Ext(name))
	return c.Send(data)
}

// requestConfig overlays form fields on the server defaults.
func (s *Server) requestConfig(c *fiber.Ctx) (perspective.Config, error) {
	cfg := s.defaults

	if v := c.FormValue("policy"); v != "" {
		p, err := perspective.ParseSelectionPolicy(v)
		if err != nil {
			return cfg, err
		}
		cfg.SelectionPolicy = p
	}
	if v := c.FormValue("fallback"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid fallback value %q", v)
		}
		cfg.FallbackEnabled = b
	}
	if v := c.FormValue("max_observations"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid max_observations value %q", v)
		}
		cfg.MaxObservations = n
	}
	if v := c.FormValue("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid min_confidence value %q", v)
		}
		cfg.MinimumConfidence = f
	}
	return cfg, nil
}

func formBool(c *fiber.Ctx, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(c.FormValue(key)))
	return b
}

func errJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
