package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	"github.com/meryambn/mimiScaleUp-sub005/services/realtime"
)

// serve starts a real HTTP server, needed for websocket upgrades.
func serve(t *testing.T, app *testApp) *httptest.Server {
	srv := httptest.NewServer(app)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, app.hub.Shutdown(ctx))
		srv.Close()
	})
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(realtime.Frame{Event: event, Data: raw}))
}

// waitFrame reads frames until one of `event` arrives.
func waitFrame(t *testing.T, conn *websocket.Conn, event string, out interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f realtime.Frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %q", event)
		if f.Event != event {
			continue
		}
		if out != nil {
			require.NoError(t, json.Unmarshal(f.Data, out))
		}
		return
	}
}

func waitOnline(t *testing.T, app *testApp, id core.Identity) {
	t.Helper()
	require.Eventually(t, func() bool { return app.hub.IsOnline(id) }, 2*time.Second, 10*time.Millisecond)
}

func Test_messageApi_relay(t *testing.T) {
	app := setup(t)
	srv := serve(t, app)
	amina := app.createUser(t, "Amina", "amina@rocket.test", pwd, user.RoleStartup, true)
	karim := app.createUser(t, "Karim", "karim@mentors.test", pwd, user.RoleMentor, true)
	aminaToken, karimToken := getToken(t, amina), getToken(t, karim)

	conn := dialWS(t, srv, aminaToken)
	defer conn.Close()
	waitOnline(t, app, amina.Identity())

	// REST send to a connected user
	var sent message.Message
	rec := app.do(t, http.MethodPost, "/api/messages", karimToken, message.PrivateMessagePayload{
		ReceiverID: amina.ID, ReceiverRole: user.RoleStartup, Content: "  Salam Amina ",
	}, &sent)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Salam Amina", sent.Content)
	assert.Equal(t, karim.Identity(), sent.Sender())

	var received message.Message
	waitFrame(t, conn, core.EventPrivateMessage, &received)
	assert.Equal(t, sent.ID, received.ID)
	assert.Equal(t, "Salam Amina", received.Content)

	// websocket send to an offline user: acked, then notified
	sendFrame(t, conn, core.EventPrivateMessage, message.PrivateMessagePayload{
		ReceiverID: karim.ID, ReceiverRole: user.RoleMentor, Content: "Hi Karim", TempID: "tmp-1",
	})
	var ack message.MessageSentPayload
	waitFrame(t, conn, core.EventMessageSent, &ack)
	assert.Equal(t, "tmp-1", ack.TempID)
	assert.Equal(t, karim.Identity(), ack.Message.Recipient())

	var notifs []notification.Notification
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/notifications/%d/%s", karim.ID, user.RoleMentor), karimToken, nil, &notifs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.TypeMessage, notifs[0].Type)
	assert.Equal(t, ack.Message.ID, notifs[0].RelatedID.Int)

	// mark as read over the socket; frames are handled in order, so the next ack means it was applied
	sendFrame(t, conn, core.EventMarkMessageRead, message.MarkReadPayload{MessageID: sent.ID})
	sendFrame(t, conn, core.EventPrivateMessage, message.PrivateMessagePayload{
		ReceiverID: karim.ID, ReceiverRole: user.RoleMentor, Content: "read it", TempID: "tmp-2",
	})
	waitFrame(t, conn, core.EventMessageSent, &ack)
	require.Equal(t, "tmp-2", ack.TempID)

	var thread []message.Message
	path := fmt.Sprintf("/api/messages/conversation/%d/%s/%d/%s", karim.ID, user.RoleMentor, amina.ID, user.RoleStartup)
	rec = app.do(t, http.MethodGet, path, karimToken, nil, &thread)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, thread, 3)
	assert.Equal(t, sent.ID, thread[0].ID, "oldest first")
	assert.True(t, thread[0].IsRead)
	assert.False(t, thread[1].IsRead)

	var convs []message.Conversation
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/messages/conversations/%d/%s", karim.ID, user.RoleMentor), karimToken, nil, &convs)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, convs, 1)
	assert.Equal(t, amina.ID, convs[0].PeerID)
	assert.Equal(t, 2, convs[0].UnreadCount)

	var marked markedBody
	rec = app.do(t, http.MethodPut, fmt.Sprintf("/api/messages/read-all/%d/%s", amina.ID, user.RoleStartup), karimToken, nil, &marked)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, marked.Marked)

	// amina is told her messages were read
	var read message.MessageReadPayload
	waitFrame(t, conn, core.EventMessageRead, &read)
	assert.Len(t, read.MessageIDs, 2)
	assert.Equal(t, karim.ID, read.ReaderID)
}

type markedBody struct {
	Marked int `json:"marked"`
}

func Test_messageApi_socketErrors(t *testing.T) {
	app := setup(t)
	srv := serve(t, app)
	amina := app.createUser(t, "Amina", "amina@rocket.test", pwd, user.RoleStartup, true)
	karim := app.createUser(t, "Karim", "karim@mentors.test", pwd, user.RoleMentor, true)

	conn := dialWS(t, srv, getToken(t, amina))
	defer conn.Close()

	tests := []struct {
		name    string
		event   string
		data    interface{}
		wantErr string
	}{
		{
			name: "self message", event: core.EventPrivateMessage,
			data:    message.PrivateMessagePayload{ReceiverID: amina.ID, ReceiverRole: user.RoleStartup, Content: "me"},
			wantErr: "recipient: cannot send a message to yourself",
		},
		{name: "unknown event", event: "dance", data: map[string]int{}, wantErr: `unknown event "dance"`},
		{name: "unknown message", event: core.EventMarkMessageRead, data: message.MarkReadPayload{MessageID: 999}, wantErr: "message not found"},
		{
			name: "typing without receiver", event: core.EventTyping, data: message.TypingPayload{},
			wantErr: "receiverId: invalid receiver",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sendFrame(t, conn, tt.event, tt.data)
			var payload message.ErrorPayload
			waitFrame(t, conn, core.EventError, &payload)
			assert.Equal(t, tt.wantErr, payload.Error)
		})
	}

	// the connection survives handler errors
	sendFrame(t, conn, core.EventPrivateMessage, message.PrivateMessagePayload{
		ReceiverID: karim.ID, ReceiverRole: user.RoleMentor, Content: "still here",
	})
	waitFrame(t, conn, core.EventMessageSent, nil)
}

func Test_messageApi_deactivatedSocket(t *testing.T) {
	app := setup(t)
	srv := serve(t, app)
	idle := app.createUser(t, "Idle", "idle@rocket.test", pwd, user.RoleStartup, false)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + getToken(t, idle)
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, app.hub.IsOnline(idle.Identity()))
}

func Test_messageApi_contacts(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@scaleup.test", pwd, user.RoleAdmin, true)
	amina := app.createUser(t, "Amina", "amina@rocket.test", pwd, user.RoleStartup, true)
	app.createUser(t, "Yacine", "yacine@rocket.test", pwd, user.RoleStartup, true)
	karim := app.createUser(t, "Karim", "karim@mentors.test", pwd, user.RoleMentor, true)
	app.createUser(t, "Idle", "idle@mentors.test", pwd, user.RoleMentor, false)

	contactIDs := func(token string, id user.User) []int {
		var cs []message.Contact
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/messages/contacts/%d/%s", id.ID, id.Role), token, nil, &cs)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ids := make([]int, 0, len(cs))
		for _, c := range cs {
			ids = append(ids, c.UserID)
		}
		return ids
	}

	startupContacts := contactIDs(getToken(t, amina), amina)
	assert.ElementsMatch(t, []int{admin.ID, karim.ID}, startupContacts, "active users of other roles")
	assert.Len(t, contactIDs(getToken(t, admin), admin), 3, "every other active user")

	rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/messages/contacts/%d/%s", karim.ID, karim.Role), getToken(t, amina), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
