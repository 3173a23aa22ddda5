package detection

import (
	"bytes"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/disintegration/imaging"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ironsheep/perspective-mcp/internal/perspective"
)

// DefaultRemoteTimeout bounds one round trip to the detection service.
const DefaultRemoteTimeout = 2 * time.Second

// RemoteDetector delegates detection to an out-of-process service over a
// Unix socket. One connection carries one msgpack request and one msgpack
// response.
type RemoteDetector struct {
	socketPath string
	timeout    time.Duration
}

// RemoteRequest is sent to the detection service.
type RemoteRequest struct {
	Width       int                       `msgpack:"w"`
	Height      int                       `msgpack:"h"`
	Orientation uint32                    `msgpack:"o"`
	Data        []byte                    `msgpack:"d"` // PNG-encoded frame
	Options     perspective.DetectOptions `msgpack:"opts"`
}

// RemoteCandidate is one observation returned by the service.
type RemoteCandidate struct {
	// Points holds TL, TR, BL, BR as x,y pairs in normalized y-up space.
	Points     []float64 `msgpack:"pts"`
	Confidence float64   `msgpack:"c"`
	Area       float64   `msgpack:"a"`
}

// RemoteResponse is received from the detection service.
type RemoteResponse struct {
	Candidates []RemoteCandidate `msgpack:"candidates"`
	Error      string            `msgpack:"error"`
}

// NewRemoteDetector creates a client for the service listening on socketPath.
// A non-positive timeout selects DefaultRemoteTimeout.
func NewRemoteDetector(socketPath string, timeout time.Duration) *RemoteDetector {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteDetector{socketPath: socketPath, timeout: timeout}
}

// Detect sends the frame to the service and converts its candidates.
// Every failure is reported as perspective.ErrDetectorUnavailable.
func (c *RemoteDetector) Detect(req perspective.DetectRequest) ([]perspective.Candidate, error) {
	if req.Image == nil || req.Image.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", perspective.ErrDetectorUnavailable)
	}

	var frame bytes.Buffer
	if err := imaging.Encode(&frame, req.Image, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: failed to encode frame: %w", perspective.ErrDetectorUnavailable, err)
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to detection service: %w", perspective.ErrDetectorUnavailable, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("%w: %w", perspective.ErrDetectorUnavailable, err)
	}

	b := req.Image.Bounds()
	if err := msgpack.NewEncoder(conn).Encode(RemoteRequest{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Orientation: uint32(req.Orientation),
		Data:        frame.Bytes(),
		Options:     req.Options,
	}); err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", perspective.ErrDetectorUnavailable, err)
	}

	var resp RemoteResponse
	if err := msgpack.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", perspective.ErrDetectorUnavailable, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: service error: %s", perspective.ErrDetectorUnavailable, resp.Error)
	}

	candidates := make([]perspective.Candidate, 0, len(resp.Candidates))
	for i, rc := range resp.Candidates {
		if len(rc.Points) != 8 {
			return nil, fmt.Errorf("%w: candidate %d has %d coordinates, want 8",
				perspective.ErrDetectorUnavailable, i, len(rc.Points))
		}
		for _, v := range rc.Points {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, fmt.Errorf("%w: candidate %d has coordinate %g outside [0,1]",
					perspective.ErrDetectorUnavailable, i, v)
			}
		}
		if math.IsNaN(rc.Confidence) || math.IsInf(rc.Confidence, 0) {
			return nil, fmt.Errorf("%w: candidate %d has non-finite confidence",
				perspective.ErrDetectorUnavailable, i)
		}
		p := rc.Points
		cand := perspective.NewCandidate(perspective.NormalizedQuad{
			TopLeft:     perspective.NormalizedPoint{X: p[0], Y: p[1]},
			TopRight:    perspective.NormalizedPoint{X: p[2], Y: p[3]},
			BottomLeft:  perspective.NormalizedPoint{X: p[4], Y: p[5]},
			BottomRight: perspective.NormalizedPoint{X: p[6], Y: p[7]},
		}, rc.Confidence)
		if rc.Area > 0 {
			cand.BoundingBoxArea = rc.Area
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
