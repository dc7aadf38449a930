package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/auth"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/feed"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) (*httptest.Server, *auth.JWTVerifier, *mockController, *feed.MemoryFeed) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	verifier := auth.NewJWTVerifier("test-secret")
	ctrl := &mockController{}
	scanFeed := feed.NewMemoryFeed()
	handler := NewHandler(verifier, NewHub(log), ctrl, &mockScanApplier{}, scanFeed, log)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, verifier, ctrl, scanFeed
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply map[string]interface{}
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestServeHTTP_RejectsMissingToken(t *testing.T) {
	srv, _, _, _ := setupHandler(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeHTTP_RejectsBadToken(t *testing.T) {
	srv, _, _, _ := setupHandler(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeHTTP_AuthorizationHeader(t *testing.T) {
	srv, verifier, _, _ := setupHandler(t)

	token, err := verifier.Sign("U1", time.Minute)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn := dial(t, srv, header)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"event": protocol.EventSetCartData,
		"data":  map[string]string{"physicalCode": "C1"},
	}))

	reply := readReply(t, conn)
	assert.Equal(t, protocol.EventCartDataSet, reply["event"])
}

func TestServeHTTP_TokenQueryParam(t *testing.T) {
	srv, verifier, _, _ := setupHandler(t)

	token, err := verifier.Sign("U1", time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
}

func TestDispatch_CommandBeforeCartData(t *testing.T) {
	srv, verifier, _, _ := setupHandler(t)

	token, err := verifier.Sign("U1", time.Minute)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn := dial(t, srv, header)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": protocol.EventScanCartQR}))

	reply := readReply(t, conn)
	require.Equal(t, protocol.EventError, reply["event"])
	data := reply["data"].(map[string]interface{})
	assert.Equal(t, protocol.CodeBadRequest, data["code"])
	assert.Equal(t, protocol.EventScanCartQR, data["event"])
}

func TestDispatch_UnknownEvent(t *testing.T) {
	srv, verifier, _, _ := setupHandler(t)

	token, err := verifier.Sign("U1", time.Minute)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn := dial(t, srv, header)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": "no-such-event"}))

	reply := readReply(t, conn)
	assert.Equal(t, protocol.EventError, reply["event"])
}

func TestDispatch_FullScanFlow(t *testing.T) {
	srv, verifier, ctrl, scanFeed := setupHandler(t)

	token, err := verifier.Sign("U1", time.Minute)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn := dial(t, srv, header)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"event": protocol.EventSetCartData,
		"data":  map[string]string{"physicalCode": "C1"},
	}))
	assert.Equal(t, protocol.EventCartDataSet, readReply(t, conn)["event"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": protocol.EventScanCartQR}))
	assert.Equal(t, protocol.EventCartConnected, readReply(t, conn)["event"])
	assert.Equal(t, []string{"C1"}, ctrl.claimedCodes())

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": protocol.EventStopScanning}))
	assert.Equal(t, protocol.EventScanningStopped, readReply(t, conn)["event"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": protocol.EventClearCart}))
	assert.Equal(t, protocol.EventCartCleared, readReply(t, conn)["event"])
	assert.Equal(t, []string{"C1"}, ctrl.clearedCodes())
	assert.Equal(t, 0, scanFeed.SubscriberCount("C1"))
}

func TestDispatch_MalformedFrame(t *testing.T) {
	srv, verifier, _, _ := setupHandler(t)

	token, err := verifier.Sign("U1", time.Minute)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn := dial(t, srv, header)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	reply := readReply(t, conn)
	assert.Equal(t, protocol.EventError, reply["event"])
}
