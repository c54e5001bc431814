//go:build linux

package linux

import (
	"testing"

	"golang.org/x/sys/unix"
)

// =============================================================================
// poller Tests (requires Linux)
// =============================================================================

func TestNewPoller(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller failed: %v", err)
	}
	defer p.close()

	if p.epfd < 0 {
		t.Error("epfd should be >= 0")
	}
	if p.wakefd < 0 {
		t.Error("wakefd should be >= 0")
	}
	if _, ok := p.fds[p.wakefd]; !ok {
		t.Error("wakefd not registered")
	}
}

func TestPoller_CloseTwice(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller failed: %v", err)
	}

	if err := p.close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if err := p.close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestPoller_WakeIsNotACallback(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller failed: %v", err)
	}
	defer p.close()

	for i := 0; i < 3; i++ {
		if err := p.wake(); err != nil {
			t.Errorf("wake %d failed: %v", i, err)
		}
	}

	n, err := p.pollOnce(100)
	if err != nil {
		t.Fatalf("pollOnce failed: %v", err)
	}
	if n != 0 {
		t.Errorf("pollOnce = %d callbacks, want 0", n)
	}
}

func TestPoller_Callback(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller failed: %v", err)
	}
	defer p.close()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	var got uint32
	if err := p.addFD(fds[0], unix.EPOLLIN, func(events uint32) { got = events }); err != nil {
		t.Fatalf("addFD failed: %v", err)
	}

	if n, _ := p.pollOnce(0); n != 0 {
		t.Errorf("pollOnce on idle pipe = %d, want 0", n)
	}

	if _, err := unix.Write(fds[1], []byte{1}); err != nil {
		t.Fatal(err)
	}
	n, err := p.pollOnce(1000)
	if err != nil {
		t.Fatalf("pollOnce failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pollOnce = %d callbacks, want 1", n)
	}
	if got&unix.EPOLLIN == 0 {
		t.Errorf("callback events = 0x%x, want EPOLLIN", got)
	}
}
