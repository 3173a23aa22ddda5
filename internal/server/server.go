package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/perspective-mcp/internal/imaging"
	"github.com/ironsheep/perspective-mcp/internal/perspective"
	"github.com/ironsheep/perspective-mcp/internal/storage"
)

const (
	serverName    = "perspective-mcp"
	serverVersion = "0.1.0"
)

// Server handles MCP protocol communication
type Server struct {
	cache     *imaging.ImageCache
	detector  perspective.Detector
	renderer  *perspective.Renderer
	corrector *perspective.Corrector
	defaults  perspective.Config
	store     storage.Writer
	observer  perspective.Observer
	logger    *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDefaults sets the correction config that tool arguments override.
func WithDefaults(cfg perspective.Config) Option {
	return func(s *Server) { s.defaults = cfg }
}

// WithStore enables output_path on the correction and warp tools.
func WithStore(w storage.Writer) Option {
	return func(s *Server) { s.store = w }
}

// WithObserver forwards every correction outcome to o.
func WithObserver(o perspective.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithLogger replaces the default standard logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a new MCP server instance. A nil detector leaves detection
// disabled: image_detect_quadrilaterals fails and corrections always take the
// fallback path.
func New(detector perspective.Detector, opts ...Option) *Server {
	s := &Server{
		cache:    imaging.NewImageCache(),
		detector: detector,
		renderer: perspective.NewRenderer(),
		defaults: perspective.DefaultConfig(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	copts := []perspective.Option{
		perspective.WithRenderer(s.renderer),
		perspective.WithLogger(s.logger),
	}
	if s.observer != nil {
		copts = append(copts, perspective.WithObserver(s.observer))
	}
	s.corrector = perspective.NewCorrector(detector, copts...)
	return s
}

// Corrector returns the pipeline shared by all tools, so other front ends
// can reuse the same renderer and observer.
func (s *Server) Corrector() *perspective.Corrector {
	return s.corrector
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve processes newline-delimited JSON-RPC requests from r until EOF.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Base64 payloads can be large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Printf("Failed to parse request: %v", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.logger.Printf("Failed to encode response: %v", err)
			}
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    serverName,
				"version": serverVersion,
			},
		},
	}
}
