package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

func Test_notificationApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	admin := app.createUser(t, "Admin", "admin@scaleup.test", pwd, user.RoleAdmin, true)
	amina := app.createUser(t, "Amina", "amina@rocket.test", pwd, user.RoleStartup, true)
	karim := app.createUser(t, "Karim", "karim@mentors.test", pwd, user.RoleMentor, true)
	aminaToken := getToken(t, amina)

	var created []notification.Notification
	for _, msg := range []string{"first", "second", "third"} {
		n, err := app.notifSvc.Create(ctx, notification.NewNotification{
			Recipient: amina.Identity(), Type: notification.TypeTeamAddition, Message: msg,
		})
		require.NoError(t, err)
		created = append(created, n)
	}
	mentorNotif, err := app.notifSvc.Create(ctx, notification.NewNotification{
		Recipient: karim.Identity(), Type: notification.TypeMessage, Message: "hello",
	})
	require.NoError(t, err)

	base := fmt.Sprintf("/api/notifications/%d/%s", amina.ID, user.RoleStartup)

	tests := []httpTest{
		{
			name: "newest first", path: base, token: aminaToken, wantCode: http.StatusOK,
			wantData: marshalObj(t, []notification.Notification{created[2], created[1], created[0]}),
		},
		{name: "unread count", path: base + "/unread-count", token: aminaToken, wantCode: http.StatusOK, wantData: []byte(`{"count":3}`)},
		{
			name: "someone else's", path: fmt.Sprintf("/api/notifications/%d/%s", karim.ID, user.RoleMentor), token: aminaToken,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			// same id, another role: another recipient
			name: "same id other role", path: fmt.Sprintf("/api/notifications/%d/%s", amina.ID, user.RoleMentor), token: aminaToken,
			wantCode: http.StatusForbidden,
		},
		{name: "admin reads anyone's", path: fmt.Sprintf("/api/notifications/%d/%s", karim.ID, user.RoleMentor), token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "invalid user id", path: "/api/notifications/abc/startup", token: aminaToken, wantCode: http.StatusBadRequest},
		{
			name: "mark someone else's", method: http.MethodPut, path: fmt.Sprintf("/api/notifications/%d/read", mentorNotif.ID), token: aminaToken,
			wantCode: http.StatusNotFound,
		},
		{name: "mark unknown", method: http.MethodPut, path: "/api/notifications/999/read", token: aminaToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.run(t, app))
		})
	}

	t.Run("mark as read", func(t *testing.T) {
		path := fmt.Sprintf("/api/notifications/%d/read", created[0].ID)
		for i := 0; i < 2; i++ { // idempotent
			var n notification.Notification
			rec := app.do(t, http.MethodPut, path, aminaToken, nil, &n)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.True(t, n.IsRead)
		}

		rec := app.do(t, http.MethodGet, base+"/unread-count", aminaToken, nil, nil)
		assert.JSONEq(t, `{"count":2}`, rec.Body.String())
	})

	t.Run("mark all as read", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, base+"/read-all", aminaToken, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"marked":2}`, rec.Body.String())

		rec = app.do(t, http.MethodGet, base+"/unread-count", aminaToken, nil, nil)
		assert.JSONEq(t, `{"count":0}`, rec.Body.String())

		// the mentor's notification is untouched
		n, err := app.notifSvc.Get(ctx, mentorNotif.ID)
		require.NoError(t, err)
		assert.False(t, n.IsRead)
	})
}
