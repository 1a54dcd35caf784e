package tray

import "testing"

func TestTray_ToggleCallsBack(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnToggle(func(active bool) { got = append(got, active) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("toggle callbacks = %v, want [true false]", got)
	}
	if tr.IsActive() {
		t.Error("expected tray to be inactive after two toggles")
	}
}

func TestTray_SetActiveDoesNotCallBack(t *testing.T) {
	tr := New()

	called := false
	tr.OnToggle(func(bool) { called = true })

	tr.SetActive(true)

	if called {
		t.Error("SetActive must not trigger OnToggle")
	}
	if !tr.IsActive() {
		t.Error("expected tray to be active")
	}
}

func TestTray_Status(t *testing.T) {
	tr := New()
	tr.SetStatus("Tracking hand...")

	if tr.Status() != "Tracking hand..." {
		t.Errorf("Status() = %q", tr.Status())
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", "Status: idle"},
		{"Tracking face...", "Status: Tracking face..."},
	}
	for _, tt := range tests {
		if got := statusTitle(tt.in); got != tt.want {
			t.Errorf("statusTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTray_OpenCallsBack(t *testing.T) {
	tr := New()

	opened := false
	tr.OnOpen(func() { opened = true })
	tr.handleOpen()

	if !opened {
		t.Error("expected OnOpen callback")
	}
}
