package e2e

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/server"
	"github.com/ayusman/tryon/internal/store"
	"github.com/ayusman/tryon/testdata"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func goldAt(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r>>8 > 190 && g>>8 > 150 && b>>8 < 90
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	for _, name := range []string{"hoop.png", "band.png"} {
		if _, err := testdata.WriteJewelryPNG(filepath.Join(tmpDir, "media"), name, 100, 100); err != nil {
			t.Fatalf("WriteJewelryPNG() error = %v", err)
		}
	}

	loader, err := jewelry.NewLoader(s.Jewelry(), jewelry.LoaderConfig{BaseDir: tmpDir})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	frames := testdata.Frames(3)
	defer testdata.CloseAll(frames)
	cam := capture.NewMockCamera(frames, true)
	cam.SetFPS(100)

	face := detector.FrontalFaceLandmarks()
	hand := detector.OpenPalmLandmarks()
	sched := app.NewManualScheduler()

	engine := app.New(app.Config{
		Camera: cam,
		Factory: func(ctx context.Context, class detector.Class) (detector.Detector, error) {
			d := detector.NewMockDetector(class)
			if class == detector.ClassFace {
				d.SetFace(face)
			} else {
				d.SetHands([]detector.HandLandmarks{hand})
			}
			return d, nil
		},
		Scheduler: sched,
	})
	defer engine.Close()

	srv := server.New(server.Config{Store: s, Engine: engine, Loader: loader})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	call := func(method, path, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		if err != nil {
			t.Fatalf("NewRequest() error = %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s error = %v", method, path, err)
		}
		return resp
	}

	create := func(body string) string {
		t.Helper()
		resp := call(http.MethodPost, "/api/jewelry", body)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		var created struct {
			ID string `json:"id"`
		}
		json.NewDecoder(resp.Body).Decode(&created)
		return created.ID
	}

	render := func() image.Image {
		t.Helper()
		before := engine.Frames()
		waitFor(t, "rendered frame", func() bool {
			sched.Tick()
			return engine.Frames() > before
		})
		return engine.Surface()
	}

	hoopID := create(`{"name": "Gold hoop", "category": "Earrings", "imageUrl": "/media/hoop.png"}`)
	bandID := create(`{"name": "Gold band", "category": "ring", "imageUrl": "/media/band.png"}`)

	t.Run("EarringsOnBothEars", func(t *testing.T) {
		resp := call(http.MethodPut, "/api/tryon/jewelry", `{"id": "`+hoopID+`"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("select status = %d", resp.StatusCode)
		}

		resp = call(http.MethodPut, "/api/tryon/active", `{"active": true}`)
		resp.Body.Close()

		waitFor(t, "tracking", func() bool { return engine.State().Phase == app.Tracking })

		surface := render()
		if engine.Status() != "Tracking face..." {
			t.Errorf("status = %q", engine.Status())
		}

		// Ears at x=0.35 and x=0.65 mirror to 416 and 224; both sit 20px below y=216.
		if !goldAt(surface, 416, 236) || !goldAt(surface, 224, 236) {
			t.Error("expected an earring on each ear")
		}
		if goldAt(surface, 320, 236) {
			t.Error("expected nothing drawn between the ears")
		}
	})

	t.Run("SwitchToRing", func(t *testing.T) {
		loads := engine.ModelLoads()

		resp := call(http.MethodPut, "/api/tryon/jewelry", `{"id": "`+bandID+`"}`)
		resp.Body.Close()

		waitFor(t, "hand tracking", func() bool {
			s := engine.State()
			return s.Phase == app.Tracking && s.Category == jewelry.Ring
		})

		if got := engine.ModelLoads() - loads; got != 1 {
			t.Errorf("model loads for the switch = %d, want 1", got)
		}
		if cam.Opens() != 1 {
			t.Errorf("camera opened %d times, want 1", cam.Opens())
		}

		render()
		if engine.Status() != "Tracking hand..." {
			t.Errorf("status = %q", engine.Status())
		}
	})

	t.Run("Deactivate", func(t *testing.T) {
		resp := call(http.MethodPut, "/api/tryon/active", `{"active": false}`)
		resp.Body.Close()

		if cam.IsOpen() {
			t.Error("expected the camera to be released")
		}
		if sched.Active() != 0 {
			t.Error("expected the render loop to stop")
		}
		if engine.Status() != app.StatusOff {
			t.Errorf("status = %q, want %q", engine.Status(), app.StatusOff)
		}
	})
}
