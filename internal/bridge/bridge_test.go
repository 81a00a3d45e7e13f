package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/cgd1/internal/eventbus"
	"github.com/muurk/cgd1/internal/metrics"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/transport/fake"
)

const testAddress = "58:2D:34:00:00:01"

type stubSource struct {
	mu        sync.Mutex
	connected bool
	cfg       *protocol.Configuration
	alarms    []protocol.Alarm
}

func (s *stubSource) Address() string { return testAddress }

func (s *stubSource) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubSource) Configuration() *protocol.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *stubSource) Alarms() []protocol.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarms
}

func testConfiguration(t *testing.T) *protocol.Configuration {
	t.Helper()
	cfg, err := protocol.DecodeConfiguration(fake.DefaultConfiguration, time.Now())
	require.NoError(t, err)
	return cfg
}

func newTestBridge(t *testing.T, src Source) (*Server, *eventbus.Bus, *httptest.Server) {
	t.Helper()
	bus := eventbus.New()
	reg := metrics.NewRegistry()
	metrics.New(reg).SetConnected(true)

	s, err := New(Config{Bus: bus, Source: src, Registry: reg})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
		bus.Close()
	})
	return s, bus, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Source: &stubSource{}})
	assert.Error(t, err)

	_, err = New(Config{Bus: eventbus.New()})
	assert.Error(t, err)
}

func TestWebSocket_HelloCarriesState(t *testing.T) {
	at, err := protocol.NewClockTime(7, 30)
	require.NoError(t, err)
	src := &stubSource{
		connected: true,
		cfg:       testConfiguration(t),
		alarms:    []protocol.Alarm{protocol.NewAlarm(0, true, at, protocol.Weekdays, false), protocol.EmptyAlarm(1)},
	}
	_, _, ts := newTestBridge(t, src)

	hello := readMessage(t, dial(t, ts))
	assert.Equal(t, TypeHello, hello.Type)
	assert.NotEmpty(t, hello.Session)
	assert.Equal(t, testAddress, hello.Address)
	require.NotNil(t, hello.Connected)
	assert.True(t, *hello.Connected)

	require.NotNil(t, hello.Configuration)
	assert.Equal(t, 3, hello.Configuration.SoundVolume)
	assert.Equal(t, 60, hello.Configuration.TimezoneOffset)
	assert.Equal(t, "21:00", hello.Configuration.NightStart)

	require.Len(t, hello.Alarms, 2)
	assert.Equal(t, AlarmView{Slot: 0, Configured: true, Enabled: true, Time: "07:30", Days: "weekdays"}, hello.Alarms[0])
	assert.Equal(t, AlarmView{Slot: 1}, hello.Alarms[1])
}

func TestWebSocket_BroadcastsEvents(t *testing.T) {
	s, bus, ts := newTestBridge(t, &stubSource{})
	first := dial(t, ts)
	second := dial(t, ts)
	assert.Equal(t, TypeHello, readMessage(t, first).Type)
	assert.Equal(t, TypeHello, readMessage(t, second).Type)
	assert.Equal(t, 2, s.Clients())

	bus.Publish(eventbus.Event{Kind: eventbus.ConfigurationUpdated, Address: testAddress, Configuration: testConfiguration(t)})
	bus.Publish(eventbus.Event{Kind: eventbus.Disconnected, Address: testAddress})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, "configuration_updated", msg.Type)
		require.NotNil(t, msg.Configuration)
		assert.Equal(t, 5, msg.Configuration.BacklightSeconds)

		msg = readMessage(t, conn)
		assert.Equal(t, "disconnected", msg.Type)
		require.NotNil(t, msg.Connected)
		assert.False(t, *msg.Connected)
	}
}

func TestWebSocket_ClientDetach(t *testing.T) {
	s, _, ts := newTestBridge(t, &stubSource{})
	conn := dial(t, ts)
	readMessage(t, conn)
	require.Equal(t, 1, s.Clients())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	_, _, ts := newTestBridge(t, &stubSource{connected: true})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok connected\n", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cgd1_connected 1")
}

func TestEventMessage(t *testing.T) {
	at, err := protocol.NewClockTime(6, 45)
	require.NoError(t, err)
	ev := eventbus.Event{
		Kind:    eventbus.AlarmsUpdated,
		At:      time.Unix(1700000000, 0),
		Address: testAddress,
		Alarms:  []protocol.Alarm{protocol.NewAlarm(3, false, at, protocol.Monday|protocol.Friday, true)},
		Partial: true,
	}

	msg := EventMessage(ev)
	assert.Equal(t, "alarms_updated", msg.Type)
	assert.True(t, msg.Partial)
	assert.Nil(t, msg.Connected)
	assert.Equal(t, []AlarmView{{Slot: 3, Configured: true, Time: "06:45", Days: "mon,fri", Snooze: true}}, msg.Alarms)
}

func TestRun_StopsOnCancel(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	s, err := New(Config{Listen: "127.0.0.1:0", Bus: bus, Source: &stubSource{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
