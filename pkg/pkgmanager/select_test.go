package pkgmanager

import "testing"

func TestSelectNeverReturnsNilAdapter(t *testing.T) {
	adapter, err := Select(false, t.TempDir())
	if err != nil {
		t.Fatalf("Select(false): %v", err)
	}
	if adapter == nil {
		t.Fatal("Select(false) returned a nil Adapter")
	}
}

func TestSelectWrapsInEmulatorWhenEnabled(t *testing.T) {
	adapter, err := Select(true, t.TempDir())
	if err != nil {
		t.Fatalf("Select(true): %v", err)
	}
	if _, ok := adapter.(*Emulator); !ok {
		t.Errorf("Select(true) returned %T, want *Emulator wrapping the detected distro's adapter", adapter)
	}
}
