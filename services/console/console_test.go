package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"powermon-go/bus"
	"powermon-go/services/access"
	"powermon-go/services/store"
	"powermon-go/types"
)

// --- minimal fake UART ---

type fakeUART struct {
	mu      sync.Mutex
	rx      []byte
	tx      strings.Builder
	rd      chan struct{}
	recvErr error
}

func newFakeUART() *fakeUART { return &fakeUART{rd: make(chan struct{}, 1)} }

func (f *fakeUART) inject(s string) {
	f.mu.Lock()
	f.rx = append(f.rx, s...)
	if len(f.rd) == 0 {
		f.rd <- struct{}{}
	}
	f.mu.Unlock()
}

func (f *fakeUART) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tx.Write(p)
}

func (f *fakeUART) output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tx.String()
}

func (f *fakeUART) Readable() <-chan struct{} { return f.rd }

func (f *fakeUART) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	if len(f.rx) > 0 && len(f.rd) == 0 {
		f.rd <- struct{}{}
	}
	return n, f.recvErr
}

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

var peerA = types.PeerID{MAC: [6]byte{0xAA, 0xBB, 0xCC, 0, 0, 1}}

func setup(t *testing.T) (*Console, *access.Guard, *store.Store, context.Context) {
	t.Helper()
	b := bus.NewBus(8)
	g := access.NewGuard(b.NewConnection("guard"), zerolog.Nop())
	st := store.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svcConn := b.NewConnection("access")
	svc := access.NewService(g, zerolog.Nop())
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = svc.Run(ctx, svcConn)
	}()
	<-ready
	time.Sleep(10 * time.Millisecond)

	c := New(newFakeUART(), b.NewConnection("console"), st, zerolog.Nop(), Info{Version: "1.0.0", Device: "pico-w"})
	return c, g, st, ctx
}

func TestExecOwnerCommands(t *testing.T) {
	c, g, _, ctx := setup(t)
	assert.Equal(t, "owner: unclaimed\r\n", c.Exec(ctx, "owner"))

	g.Connect(peerA)
	assert.Equal(t, "owner: owned(AA:BB:CC:00:00:01)\r\n", c.Exec(ctx, " owner "))
	assert.Equal(t, "owner reset (was owned(AA:BB:CC:00:00:01))\r\n", c.Exec(ctx, "owner reset"))
	assert.Equal(t, types.Unclaimed(), g.State())
}

func TestExecReadingAndMisc(t *testing.T) {
	c, _, st, ctx := setup(t)
	st.UpdateSensor(types.Reading{VoltageMilliV: 37125, CurrentMilliA: -20, PowerDeciW: 50, TempCentiC: 2500, BatteryPct: 7})
	st.UpdateRxText("hi")

	assert.Equal(t, "V=37.125V I=-20mA P=5.0W T=25.00C BAT=7% RX=hi\r\n", c.Exec(ctx, "reading"))
	assert.Equal(t, "pico-w 1.0.0\r\n", c.Exec(ctx, "version"))
	assert.Contains(t, c.Exec(ctx, "help"), "owner reset")
	assert.Equal(t, "error: unsupported\r\n", c.Exec(ctx, "owner wipe"))
	assert.Equal(t, "", c.Exec(ctx, "   "))
}

func TestOwnerTimeoutWithoutService(t *testing.T) {
	b := bus.NewBus(4)
	c := New(newFakeUART(), b.NewConnection("console"), store.New(0), zerolog.Nop(), Info{})
	assert.Equal(t, "error: timeout\r\n", c.Exec(context.Background(), "owner"))
}

func TestRunReadsLines(t *testing.T) {
	u := newFakeUART()
	b := bus.NewBus(4)
	c := New(u, b.NewConnection("console"), store.New(0), zerolog.Nop(), Info{Version: "v", Device: "d"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	u.inject("vers")
	u.inject("ion\r\n")
	u.inject(strings.Repeat("x", 300) + "\n")

	assert.Eventually(t, func() bool {
		out := u.output()
		return strings.Contains(out, "d v\r\n") && strings.Count(out, "error: unsupported") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRunLogsReadErrors(t *testing.T) {
	u := newFakeUART()
	u.recvErr = errors.New("framing error")
	var logs lockedBuffer
	log := zerolog.New(&logs).Level(zerolog.DebugLevel)
	c := New(u, bus.NewBus(4).NewConnection("console"), store.New(0), log, Info{Version: "v", Device: "d"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	// Bytes delivered alongside the error are still consumed.
	u.inject("version\n")
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "console read failed") &&
			strings.Contains(logs.String(), "framing error") &&
			strings.Contains(u.output(), "d v\r\n")
	}, time.Second, 5*time.Millisecond)
}

func TestRunIgnoresReadTimeout(t *testing.T) {
	u := newFakeUART()
	u.recvErr = context.DeadlineExceeded
	var logs lockedBuffer
	c := New(u, bus.NewBus(4).NewConnection("console"), store.New(0), zerolog.New(&logs).Level(zerolog.DebugLevel), Info{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	u.inject("x")
	assert.Eventually(t, func() bool {
		u.mu.Lock()
		defer u.mu.Unlock()
		return len(u.rx) == 0
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.NotContains(t, logs.String(), "console read failed")
}
