package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/tryon/testdata"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_StartAndSnapshot(t *testing.T) {
	frames := testdata.Frames(2)
	defer testdata.CloseAll(frames)

	cam := NewMockCamera(frames, false).Manual()
	cam.SetFPS(100)
	session := NewSession(cam, SessionConfig{})

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer session.Stop()

	waitFor(t, "first frame", session.Ready)

	frame, ok := session.Snapshot(0)
	if !ok {
		t.Fatal("expected a snapshot")
	}
	defer frame.Close()

	if frame.Width() != 640 || frame.Height() != 480 {
		t.Errorf("snapshot size = %dx%d, want 640x480", frame.Width(), frame.Height())
	}

	t.Run("unchanged timestamp yields nothing", func(t *testing.T) {
		if again, ok := session.Snapshot(frame.Timestamp); ok {
			again.Close()
			t.Error("expected no snapshot for an unchanged frame")
		}
	})

	t.Run("new frame yields a snapshot", func(t *testing.T) {
		cam.Advance()
		waitFor(t, "next frame", func() bool {
			return session.LatestTimestamp() != frame.Timestamp
		})

		next, ok := session.Snapshot(frame.Timestamp)
		if !ok {
			t.Fatal("expected a snapshot of the new frame")
		}
		next.Close()
	})
}

func TestSession_StopReleasesCamera(t *testing.T) {
	frames := testdata.Frames(1)
	defer testdata.CloseAll(frames)

	cam := NewMockCamera(frames, true)
	session := NewSession(cam, SessionConfig{})

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "first frame", session.Ready)

	session.Stop()
	session.Stop()

	if cam.IsOpen() {
		t.Error("expected camera to be closed after Stop")
	}
	if session.Running() || session.Ready() {
		t.Error("expected session to be stopped")
	}
	if _, ok := session.Snapshot(0); ok {
		t.Error("expected no snapshot after Stop")
	}
}

func TestSession_OpenErrors(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
		want    error
	}{
		{name: "permission", openErr: errors.New("permission denied by user"), want: ErrPermissionDenied},
		{name: "hardware", openErr: errors.New("no such device"), want: ErrHardware},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewMockCamera(nil, false)
			cam.SetOpenError(tt.openErr)
			session := NewSession(cam, SessionConfig{})

			err := session.Start(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Start() error = %v, want %v", err, tt.want)
			}
			if session.Running() {
				t.Error("session should not be running")
			}
		})
	}
}

func TestSession_CancelledStartClosesLateCamera(t *testing.T) {
	frames := testdata.Frames(1)
	defer testdata.CloseAll(frames)

	cam := NewMockCamera(frames, true)
	release := cam.BlockOpen()
	session := NewSession(cam, SessionConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- session.Start(ctx)
	}()

	// Give Start a moment to reach the blocked Open.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}

	release()

	waitFor(t, "late open", func() bool { return cam.Opens() == 1 })
	waitFor(t, "late camera to close", func() bool { return !cam.IsOpen() })

	if session.Running() {
		t.Error("session should not be running")
	}
}

func TestSession_StopDuringStart(t *testing.T) {
	frames := testdata.Frames(1)
	defer testdata.CloseAll(frames)

	cam := NewMockCamera(frames, true)
	release := cam.BlockOpen()
	session := NewSession(cam, SessionConfig{})

	result := make(chan error, 1)
	go func() {
		result <- session.Start(context.Background())
	}()

	// Give Start a moment to reach the blocked Open.
	time.Sleep(20 * time.Millisecond)
	session.Stop()
	release()

	select {
	case err := <-result:
		if !errors.Is(err, ErrSessionStopped) {
			t.Errorf("Start() error = %v, want ErrSessionStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}

	if cam.IsOpen() {
		t.Error("expected camera opened after Stop to be closed")
	}
}

func TestSession_ReadFailuresReportHardwareError(t *testing.T) {
	frames := testdata.Frames(1)
	defer testdata.CloseAll(frames)

	cam := NewMockCamera(frames, true)
	cam.SetFPS(1000)

	var (
		mu     sync.Mutex
		failed error
	)
	session := NewSession(cam, SessionConfig{
		MaxReadFailures: 3,
		OnFailure: func(err error) {
			mu.Lock()
			failed = err
			mu.Unlock()
		},
	})

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer session.Stop()

	waitFor(t, "first frame", session.Ready)
	cam.SetReadError(errors.New("device unplugged"))

	waitFor(t, "failure callback", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failed != nil
	})

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(failed, ErrHardware) {
		t.Errorf("failure = %v, want ErrHardware", failed)
	}
	if session.Running() {
		t.Error("session should stop after repeated read failures")
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after repeated read failures")
	}
}

func TestSession_RealCamera_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	session := NewSession(NewCamera(0), SessionConfig{})
	if err := session.Start(context.Background()); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	defer session.Stop()

	waitFor(t, "first frame", session.Ready)

	frame, ok := session.Snapshot(0)
	if !ok {
		t.Fatal("expected a snapshot")
	}
	defer frame.Close()

	if frame.Mat.Type() != gocv.MatTypeCV8UC3 {
		t.Logf("unexpected frame type %v", frame.Mat.Type())
	}
}
