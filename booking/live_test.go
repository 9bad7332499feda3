package booking

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"servicedesk/logger"
	"servicedesk/mq"
)

func TestLiveHubBroadcast(t *testing.T) {
	hub := NewLiveHub(logger.Discard(), nil)
	router := httprouter.New()
	router.GET("/api/live/bookings", hub.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live/bookings"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast([]byte(`{"type":"created","bookingId":"BK-1234567"}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"created","bookingId":"BK-1234567"}`, string(msg))

	hub.Close()
	require.Equal(t, 0, hub.Count())
}

func TestLiveHubDropsDisconnectedClients(t *testing.T) {
	hub := NewLiveHub(logger.Discard(), nil)
	router := httprouter.New()
	router.GET("/api/live/bookings", hub.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live/bookings"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveHubStalledClientDoesNotBlockWrites(t *testing.T) {
	hub := NewLiveHub(logger.Discard(), nil)
	router := httprouter.New()
	router.GET("/api/live/bookings", hub.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	// connected but never reads
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live/bookings"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	svc := newTestService(NewMemoryRepository(), WithEventPublisher(mq.LocalPublisher{Target: hub}))
	big := bytes.Repeat([]byte("x"), 64<<10)

	done := make(chan error, 1)
	go func() {
		// enough to fill the socket buffers and the client queue
		for i := 0; i < 4*liveSendBuffer; i++ {
			hub.Broadcast(big)
		}
		for i := 0; i < 100; i++ {
			if _, err := svc.Create(context.Background(), janeRequest()); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("booking writes blocked behind a stalled live client")
	}
	require.Equal(t, 0, hub.Count())
}
