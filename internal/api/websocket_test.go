package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devicesim/esp32-rest-sim/internal/device"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/config"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/logging"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func mockClient(hub *Hub, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func TestHub_HandleEventToSubscribed(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, string(device.EventControlChanged))
	hub.Register(client)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	hub.HandleEvent(device.Event{
		Type:       device.EventControlChanged,
		DeviceName: "bench",
		Timestamp:  at,
		Payload:    device.ControlResult{Device: device.ActuatorLED, State: device.ActionOn, Output: device.LevelOn},
	})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != "control.changed" {
			t.Errorf("message = %+v", wsMsg)
		}
		if wsMsg.Device != "bench" {
			t.Errorf("device = %q, want bench", wsMsg.Device)
		}
		if wsMsg.Timestamp != "2026-03-01T09:00:00Z" {
			t.Errorf("timestamp = %q", wsMsg.Timestamp)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, string(device.EventRebooted))
	hub.Register(client)

	hub.HandleEvent(device.Event{Type: device.EventSensorReading, Payload: map[string]any{"temperature": 21.5}})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// OK, nothing received
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := testHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := mockClient(hub)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client) // second call must not double-close
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, "x")
	client.send = make(chan []byte) // unbuffered, never read
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.HandleEvent(device.Event{Type: "x"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleEvent blocked on a slow client")
	}
}

// ─── WebSocket End-to-End Tests ────────────────────────────────────

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws" + query
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readEvent reads messages until one of the wanted event type arrives.
func readEvent(t *testing.T, ws *websocket.Conn, eventType device.EventType) WSMessage {
	t.Helper()
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("reading %s: %v", eventType, err)
		}
		if msg.Type == WSTypeEvent && msg.EventType == string(eventType) {
			return msg
		}
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_StreamsSimulatorEvents(t *testing.T) {
	srv, _ := testServer(t)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ws := dialWS(t, ts, "")
	waitForClients(t, srv.Hub(), 1)

	resp, err := http.Post(ts.URL+"/api/control", "application/json", strings.NewReader(`{"device":"gpio","state":"on"}`))
	if err != nil {
		t.Fatalf("POST /api/control: %v", err)
	}
	resp.Body.Close()

	msg := readEvent(t, ws, device.EventControlChanged)
	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload = %T", msg.Payload)
	}
	if payload["device"] != "gpio" || payload["output"] != "on" {
		t.Errorf("payload = %v", payload)
	}
}

func TestWebSocket_ChannelFilterAndSubscribe(t *testing.T) {
	srv, sim := testServer(t)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ws := dialWS(t, ts, "?channels=config.changed")
	waitForClients(t, srv.Hub(), 1)

	// Not subscribed yet: the reading must not arrive before the config event.
	sim.ReadSensors()
	sim.UpdateConfig(device.ConfigPatch{})

	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first WSMessage
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.EventType != string(device.EventConfigChanged) {
		t.Fatalf("first event = %q, want config.changed", first.EventType)
	}

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{string(device.EventSensorReading)}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	if err := ws.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "sub-1" {
		t.Fatalf("ack = %+v", ack)
	}

	sim.ReadSensors()
	readEvent(t, ws, device.EventSensorReading)
}

func TestWebSocket_Ping(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ws := dialWS(t, ts, "")
	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("reply = %+v, want pong p1", msg)
	}
}
