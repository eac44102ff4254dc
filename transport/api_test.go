package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/images"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
)

const testPassword = "Str0ng&LongPass!"

// newTestServer boots the full stack against a throwaway badger dir,
// the same wiring as cmd/main.go.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	imageStore, err := images.NewStore(t.TempDir())
	req.NoError(err)

	log := slog.Default()
	messageRepo := repositories.NewMessageRepository(db, log)
	userRepo := repositories.NewUserRepository(db)
	registry := runtime.NewRegistry()
	relay := runtime.NewRelay(log, registry, messageRepo, 100*time.Millisecond)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	chatService := services.NewChatService(relay, userRepo, messageRepo, imageStore)
	authService := services.NewAuthService(userRepo, tokens, imageStore)

	ws := NewWSHandler(log, tokens, chatService, 16)
	api := NewAPI(log, tokens, authService, chatService, ws)

	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)
	return server
}

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Token    string          `json:"token"`
	User     json.RawMessage `json:"user"`
	Users    []userJSON      `json:"users"`
	Messages []messageJSON   `json:"messages"`

	NewMessage     *messageJSON   `json:"newMessage"`
	UnseenMessages map[string]int `json:"unseenMessages"`
}

func doJSON(t *testing.T, method, url, token string, body any) (int, envelope) {
	t.Helper()
	req := require.New(t)

	var buf bytes.Buffer
	if body != nil {
		req.NoError(json.NewEncoder(&buf).Encode(body))
	}
	request, err := http.NewRequest(method, url, &buf)
	req.NoError(err)
	if token != "" {
		request.Header.Set("token", token)
	}

	response, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer response.Body.Close()

	var env envelope
	req.NoError(json.NewDecoder(response.Body).Decode(&env))
	return response.StatusCode, env
}

func signup(t *testing.T, serverURL, email, fullName string) (string, userJSON) {
	t.Helper()
	status, env := doJSON(t, http.MethodPost, serverURL+"/api/auth/signup", "", map[string]string{
		"email":    email,
		"fullName": fullName,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	var user userJSON
	require.NoError(t, json.Unmarshal(env.User, &user))
	return env.Token, user
}

func dialWS(t *testing.T, serverURL, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestAPI_Protected_Routes_Require_A_Token(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	status, env := doJSON(t, http.MethodGet, server.URL+"/api/messages/users", "", nil)
	req.Equal(http.StatusUnauthorized, status)
	req.False(env.Success)

	status, _ = doJSON(t, http.MethodGet, server.URL+"/api/messages/users", "garbage-token", nil)
	req.Equal(http.StatusUnauthorized, status)
}

func TestAPI_Signup_Login_And_Check(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	token, user := signup(t, server.URL, "alice@example.com", "Alice")
	req.NotEmpty(token)
	req.Equal("Alice", user.FullName)

	// Duplicate signup is refused
	status, _ := doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]string{
		"email": "alice@example.com", "fullName": "Alice", "password": testPassword,
	})
	req.Equal(http.StatusConflict, status)

	// Login works and the token introspects back to the same user
	status, env := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": testPassword,
	})
	req.Equal(http.StatusOK, status)
	req.NotEmpty(env.Token)

	status, env = doJSON(t, http.MethodGet, server.URL+"/api/auth/check", env.Token, nil)
	req.Equal(http.StatusOK, status)
	var checked userJSON
	req.NoError(json.Unmarshal(env.User, &checked))
	req.Equal(user.ID, checked.ID)
}

func TestAPI_Send_Rejects_Empty_Message(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	aliceToken, _ := signup(t, server.URL, "alice@example.com", "Alice")
	_, bob := signup(t, server.URL, "bob@example.com", "Bob")

	url := fmt.Sprintf("%s/api/messages/send/%s", server.URL, bob.ID)
	status, env := doJSON(t, http.MethodPost, url, aliceToken, map[string]string{})
	req.Equal(http.StatusBadRequest, status)
	req.False(env.Success)
}

func TestAPI_Live_Delivery_And_History(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	aliceToken, alice := signup(t, server.URL, "alice@example.com", "Alice")
	bobToken, bob := signup(t, server.URL, "bob@example.com", "Bob")

	// Bob opens his session and sees himself online
	bobConn := dialWS(t, server.URL, bobToken)
	presence := readFrame(t, bobConn)
	req.Equal("presenceChanged", presence.Type)
	req.Contains(presence.OnlineUsers, bob.ID)

	// Alice sends while connected only via REST
	url := fmt.Sprintf("%s/api/messages/send/%s", server.URL, bob.ID)
	status, env := doJSON(t, http.MethodPost, url, aliceToken, map[string]string{"text": "hi bob"})
	req.Equal(http.StatusCreated, status)
	req.NotNil(env.NewMessage)
	req.Equal("hi bob", env.NewMessage.Text)
	req.False(env.NewMessage.Seen)

	// Bob's socket receives exactly that message
	pushed := readFrame(t, bobConn)
	req.Equal("newMessage", pushed.Type)
	req.NotNil(pushed.NewMessage)
	req.Equal(env.NewMessage.ID, pushed.NewMessage.ID)
	req.Equal(alice.ID, pushed.NewMessage.SenderID)

	// Bob's sidebar shows the badge, history clears it
	status, sidebar := doJSON(t, http.MethodGet, server.URL+"/api/messages/users", bobToken, nil)
	req.Equal(http.StatusOK, status)
	req.Equal(map[string]int{alice.ID: 1}, sidebar.UnseenMessages)

	status, history := doJSON(t, http.MethodGet, server.URL+"/api/messages/"+alice.ID, bobToken, nil)
	req.Equal(http.StatusOK, status)
	req.Len(history.Messages, 1)
	req.True(history.Messages[0].Seen)

	status, sidebar = doJSON(t, http.MethodGet, server.URL+"/api/messages/users", bobToken, nil)
	req.Equal(http.StatusOK, status)
	req.Empty(sidebar.UnseenMessages)
}

func TestAPI_Presence_On_Disconnect(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	aliceToken, alice := signup(t, server.URL, "alice@example.com", "Alice")
	bobToken, bob := signup(t, server.URL, "bob@example.com", "Bob")

	bobConn := dialWS(t, server.URL, bobToken)
	first := readFrame(t, bobConn)
	req.Equal("presenceChanged", first.Type)

	aliceConn := dialWS(t, server.URL, aliceToken)
	_ = readFrame(t, aliceConn)

	// Bob observes alice arriving...
	joined := readFrame(t, bobConn)
	req.Equal("presenceChanged", joined.Type)
	req.ElementsMatch([]string{alice.ID, bob.ID}, joined.OnlineUsers)

	// ...and leaving
	req.NoError(aliceConn.Close())
	left := readFrame(t, bobConn)
	req.Equal("presenceChanged", left.Type)
	req.Equal([]string{bob.ID}, left.OnlineUsers)
}
