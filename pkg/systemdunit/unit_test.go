package systemdunit

import "testing"

func TestReconcileRunsExpectedCommands(t *testing.T) {
	var calls [][]string
	m := New("patchcore-autoassess")
	m.exec = func(name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		return nil, nil
	}

	if err := m.reconcile("patchcore-autoassess.service"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	want := [][]string{
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", "patchcore-autoassess.service"},
		{"systemctl", "start", "patchcore-autoassess.service"},
		{"systemctl", "status", "patchcore-autoassess.service"},
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d: %+v", len(calls), len(want), calls)
	}
	for i := range want {
		if len(calls[i]) != len(want[i]) {
			t.Fatalf("call %d = %v, want %v", i, calls[i], want[i])
		}
		for j := range want[i] {
			if calls[i][j] != want[i][j] {
				t.Errorf("call %d arg %d = %q, want %q", i, j, calls[i][j], want[i][j])
			}
		}
	}
}

func TestIsActiveParsesOutput(t *testing.T) {
	m := New("patchcore-autoassess")
	m.exec = func(name string, args ...string) ([]byte, error) {
		return []byte("active\n"), nil
	}
	if !m.IsActive("patchcore-autoassess.service") {
		t.Error("IsActive() = false, want true")
	}
}
