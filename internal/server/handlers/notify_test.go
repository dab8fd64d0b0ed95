package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/internal/server/notify"
	"github.com/iudanet/daybook/pkg/api"
)

func startNotifyServer(t *testing.T, hub *notify.Hub) string {
	t.Helper()
	h := NewNotifyHandler(setupTestLogger(), hub)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := r.URL.Query().Get("user"); userID != "" {
			r = withUser(r, userID)
		}
		h.Subscribe(w, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, device string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set(api.HeaderDeviceID, device)
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNotifyHandler_DeliversForeignWrites(t *testing.T) {
	hub := notify.NewHub(setupTestLogger())
	url := startNotifyServer(t, hub) + "?user=u1"

	conn := dial(t, url, "dev-b")
	require.Eventually(t, func() bool { return hub.Count("u1") == 1 }, time.Second, 10*time.Millisecond)

	// Запись самого устройства не доставляется
	hub.Publish("u1", api.Notification{Type: api.NotificationDocumentUpdated, Key: "clients.json", DeviceID: "dev-b"})
	hub.Publish("u1", api.Notification{Type: api.NotificationDocumentUpdated, Key: "events.json", DeviceID: "dev-a"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n api.Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, "events.json", n.Key)
	assert.Equal(t, "dev-a", n.DeviceID)
}

func TestNotifyHandler_UnsubscribesOnClose(t *testing.T) {
	hub := notify.NewHub(setupTestLogger())
	url := startNotifyServer(t, hub) + "?user=u1"

	conn := dial(t, url, "dev-b")
	require.Eventually(t, func() bool { return hub.Count("u1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.Count("u1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyHandler_HubCloseEndsStream(t *testing.T) {
	hub := notify.NewHub(setupTestLogger())
	url := startNotifyServer(t, hub) + "?user=u1"

	conn := dial(t, url, "dev-b")
	require.Eventually(t, func() bool { return hub.Count("u1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}

func TestNotifyHandler_Unauthorized(t *testing.T) {
	hub := notify.NewHub(setupTestLogger())
	url := startNotifyServer(t, hub)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
