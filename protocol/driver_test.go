package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sireader/core/card"
	"github.com/sireader/core/frame"
)

// scriptedPort answers each Write with whatever response is registered for
// the exact bytes written, delivered back through the driver's accumulator
// on a separate goroutine (as a real serial read loop would).
type scriptedPort struct {
	mu        sync.Mutex
	driver    *Driver
	responses map[string][]byte
	writes    [][]byte
	baudErr   error
	closed    bool
}

func newScriptedPort() *scriptedPort {
	return &scriptedPort{responses: map[string][]byte{}}
}

func (p *scriptedPort) on(req frame.Frame, resp frame.Frame) {
	p.responses[string(req.Bytes())] = resp.Bytes()
}

func (p *scriptedPort) Write(_ context.Context, data []byte) error {
	p.mu.Lock()
	p.writes = append(p.writes, append([]byte{}, data...))
	resp, ok := p.responses[string(data)]
	p.mu.Unlock()

	if ok {
		go p.driver.HandleSerialData(resp)
	}
	return nil
}

func (p *scriptedPort) SetBaudRate(context.Context, uint32) error { return p.baudErr }

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []Status
	cards    []card.Record
	logs     []string
}

func (s *recordingSink) OnStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
}

func (s *recordingSink) OnCardRead(r card.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, r)
}

func (s *recordingSink) OnLog(_ LogDirection, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, msg)
}

func (s *recordingSink) kinds() []StatusKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusKind, len(s.statuses))
	for i, st := range s.statuses {
		out[i] = st.Kind
	}
	return out
}

func waitForStatus(t *testing.T, sink *recordingSink, kind StatusKind, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, k := range sink.kinds() {
			if k == kind {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status %s never observed; saw %v", kind, sink.kinds())
}

func okProtocolConfigResponse() frame.Frame {
	return frame.New(frame.CmdGetSystemValue, []byte{0x74, 0x01, 0x05, 0x05})
}

func okCardBlocksConfigResponse() frame.Frame {
	return frame.New(frame.CmdGetSystemValue, []byte{0x33, 0x01, 0x00, 0x00})
}

func wireSuccessfulStartup(p *scriptedPort) {
	p.on(frame.Startup, frame.New(frame.CmdSetMasterMode, nil))
	p.on(frame.GetProtocolConfig, okProtocolConfigResponse())
	p.on(frame.GetCardBlocksConfig, okCardBlocksConfigResponse())
}

func TestDriver_StartupSucceeds(t *testing.T) {
	port := newScriptedPort()
	wireSuccessfulStartup(port)
	sink := &recordingSink{}
	d := NewDriver(port, sink)
	port.driver = d

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	waitForStatus(t, sink, StatusOn, time.Second)
	d.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}

	kinds := sink.kinds()
	require.Contains(t, kinds, StatusStarting)
	require.Contains(t, kinds, StatusOn)
}

func TestDriver_ConfigurationMismatchIsFatal(t *testing.T) {
	port := newScriptedPort()
	port.on(frame.Startup, frame.New(frame.CmdSetMasterMode, nil))
	port.on(frame.GetProtocolConfig, frame.New(frame.CmdGetSystemValue, []byte{0x74, 0x01, 0x00, 0x00}))
	sink := &recordingSink{}
	d := NewDriver(port, sink)
	port.driver = d

	err := d.Start(context.Background())

	require.Error(t, err)
	var cfgErr *ConfigurationMismatchError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, sink.kinds(), StatusFatalError)
	assert.Contains(t, sink.kinds(), StatusOff)
}

func TestDriver_StartupTimesOutOnBothBauds(t *testing.T) {
	port := newScriptedPort() // nothing answers Startup
	sink := &recordingSink{}
	d := NewDriver(port, sink)
	port.driver = d

	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(context.Background()) }()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return")
	}
}

func TestDriver_Card5Detected_DecodesAndDelivers(t *testing.T) {
	port := newScriptedPort()
	wireSuccessfulStartup(port)
	sink := &recordingSink{}
	d := NewDriver(port, sink, WithZeroHour(0))
	port.driver = d

	// An all-zero block decodes cleanly: punch count byte 0 yields
	// PunchCount 0, and a card number written at its big-endian offset.
	block := make([]byte, 128)
	block[0x04], block[0x05] = 0x00, 0x2A

	// retrieveCard5 reads the block from raw offset 5..133 of the response
	// frame; frame.New's payload starts at raw offset 3, so a 2-byte
	// prefix ahead of the block lines the block up at offset 5.
	payload := append([]byte{0x00, 0x00}, block...)
	port.on(frame.ReadCard5, frame.New(frame.CmdGetCard5, payload))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	waitForStatus(t, sink, StatusOn, time.Second)
	go d.HandleSerialData(frame.NewControl(frame.CmdCard5Detected).Bytes())

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.cards)
		sink.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	d.Stop()

	require.Len(t, sink.cards, 1)
	assert.Equal(t, card.Series5, sink.cards[0].CardSeries)
}
