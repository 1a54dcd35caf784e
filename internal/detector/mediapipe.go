package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
// One process runs exactly one model class.
type MediaPipeDetector struct {
	config  Config
	class   Class
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	mu      sync.Mutex
	started bool
	closed  bool
}

// NewMediaPipeDetector creates a new MediaPipe detector for the given model class.
// The Python process is not started until Start is called.
func NewMediaPipeDetector(class Class, config Config) (*MediaPipeDetector, error) {
	if class != ClassFace && class != ClassHand {
		return nil, fmt.Errorf("unknown model class %q", class)
	}
	if scriptPath(config) == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}

	return &MediaPipeDetector{
		config: config,
		class:  class,
	}, nil
}

// MediaPipeFactory returns a loader that starts a MediaPipe detector for the
// requested class and waits until its model is ready.
func MediaPipeFactory(config Config) func(ctx context.Context, class Class) (Detector, error) {
	return func(ctx context.Context, class Class) (Detector, error) {
		d, err := NewMediaPipeDetector(class, config)
		if err != nil {
			return nil, err
		}
		if err := d.Start(ctx); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Class returns the model class served by this detector.
func (d *MediaPipeDetector) Class() Class {
	return d.class
}

// Start launches the Python process and blocks until it reports that the
// model is loaded. Cancelling ctx kills the process.
func (d *MediaPipeDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.started {
		return nil
	}

	script := scriptPath(d.config)
	if script == "" {
		return fmt.Errorf("mediapipe_service.py not found")
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, script,
		"--model", string(d.class),
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)

	ready := make(chan error, 1)
	go func() {
		ready <- waitReady(d.stdout)
	}()

	select {
	case err := <-ready:
		if err != nil {
			d.kill()
			return fmt.Errorf("load %s model: %w", d.class, err)
		}
	case <-ctx.Done():
		d.kill()
		return ctx.Err()
	}

	d.started = true
	return nil
}

// waitReady reads the handshake line the service prints once its model is loaded.
func waitReady(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}

	var handshake struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &handshake); err != nil {
		return fmt.Errorf("parse handshake: %w", err)
	}
	if !handshake.Ready {
		if handshake.Error != "" {
			return fmt.Errorf("service error: %s", handshake.Error)
		}
		return fmt.Errorf("service not ready")
	}
	return nil
}

// Detect analyzes a frame and returns detected landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if !d.started {
		return nil, fmt.Errorf("%s detector not started", d.class)
	}

	// Encode frame as JPEG
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Write length (4 bytes big-endian) + data
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	// Read JSON response
	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseResponse([]byte(line))
}

// Close shuts down the Python process. It is safe to call more than once.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

// kill terminates a process that never finished its handshake.
func (d *MediaPipeDetector) kill() {
	if d.cmd == nil || d.cmd.Process == nil {
		return
	}
	d.cmd.Process.Kill()
	d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
}

func scriptPath(config Config) string {
	if config.ScriptPath != "" {
		if _, err := os.Stat(config.ScriptPath); err == nil {
			return config.ScriptPath
		}
		return ""
	}
	return findMediaPipeScript()
}

func findMediaPipeScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".tryon/scripts/mediapipe_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	// Get executable directory to find project root
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".tryon/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonResponse represents the JSON structure from the Python service.
type jsonResponse struct {
	Face  *jsonFace  `json:"face"`
	Hands []jsonHand `json:"hands"`
}

type jsonFace struct {
	Points []jsonPoint `json:"points"`
	Score  float64     `json:"score"`
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func parseResponse(data []byte) (*Result, error) {
	var response jsonResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := &Result{}
	if response.Face != nil && len(response.Face.Points) > 0 {
		result.Face = response.Face.toFaceLandmarks()
	}
	if len(response.Hands) > 0 {
		result.Hands = make([]HandLandmarks, len(response.Hands))
		for i, h := range response.Hands {
			result.Hands[i] = h.toHandLandmarks()
		}
	}
	return result, nil
}

func (f jsonFace) toFaceLandmarks() *FaceLandmarks {
	lm := &FaceLandmarks{
		Points: make([]Point3D, len(f.Points)),
		Score:  f.Score,
	}
	for i, p := range f.Points {
		lm.Points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}
	return lm
}

// toHandLandmarks copies up to NumLandmarks points. Missing trailing points
// are reported as NaN so placement treats them as absent.
func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks; i++ {
		if i >= len(h.Points) {
			lm.Points[i] = Point3D{X: nan, Y: nan, Z: nan}
			continue
		}
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
