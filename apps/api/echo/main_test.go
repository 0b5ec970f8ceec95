package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/meryambn/mimiScaleUp-sub005/apps/api/echo"
	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	appfs "github.com/meryambn/mimiScaleUp-sub005/fs"
	emailsvc "github.com/meryambn/mimiScaleUp-sub005/services/email"
	"github.com/meryambn/mimiScaleUp-sub005/services/realtime"
	dummydb "github.com/meryambn/mimiScaleUp-sub005/storage/database/dummy"
	"github.com/meryambn/mimiScaleUp-sub005/testutil"
)

var (
	testConf = &core.Config{
		AppName:                   "ScaleUp",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://front.test",
		PasswordResetTimeoutDelta: time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			AllowOrigins:              []string{"*"},
		},
		Realtime: core.RealtimeConfig{
			WriteTimeout:   time.Second,
			PongTimeout:    5 * time.Second,
			PingInterval:   time.Second,
			SendBufferSize: 8,
			MaxMessageSize: 4096,
		},
	}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	logger := &testutil.Logger{}
	core.ParseEmailTemplates(appfs.FS, "templates/email", logger, true)
	os.Exit(m.Run())
}

// testApp is the API served over an in-memory database.
type testApp struct {
	*echoapi.Server
	db       *dummydb.DB
	usrRepo  user.Repository
	hub      *realtime.Hub
	registry *prometheus.Registry

	programSvc *program.Service
	planSvc    *planning.Service
	notifSvc   *notification.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()
	logger := &testutil.Logger{}
	validator := testutil.NewValidator()
	emailsvc.ResetSentMessages()

	db := dummydb.Open()
	app := &testApp{
		db:       db,
		usrRepo:  dummydb.NewUserRepository(db),
		registry: prometheus.NewRegistry(),
	}
	app.hub = realtime.NewHub(testConf.Realtime, app.registry, logger)

	mailSvc := emailsvc.NewConsoleServiceMock(testConf, logger)
	usrSvc := user.NewService(app.usrRepo, mailSvc, testConf)
	app.notifSvc = notification.NewService(dummydb.NewNotificationRepository(db), app.hub, validator, logger)
	msgSvc := message.NewService(dummydb.NewMessageRepository(db), app.hub, app.notifSvc, validator, logger)
	app.programSvc = program.NewService(dummydb.NewProgramRepository(db), app.notifSvc, mailSvc, validator, logger)
	app.planSvc = planning.NewService(dummydb.NewPlanningRepository(db), app.programSvc, validator)

	app.Server = echoapi.NewServer(
		"", /* addr */
		make(chan os.Signal, 1),
		&echoapi.Deps{
			Conf:            testConf,
			Logger:          logger,
			Validator:       validator,
			UserSvc:         usrSvc,
			ProgramSvc:      app.programSvc,
			NotificationSvc: app.notifSvc,
			MessageSvc:      msgSvc,
			PlanningSvc:     app.planSvc,
			Hub:             app.hub,
			Relay:           message.NewRelay(msgSvc),
			Registry:        app.registry,
		},
	)
	return app
}

func (app *testApp) createUser(t *testing.T, name, email, pwd, role string, isActive bool) user.User {
	return testutil.CreateUser(t, app.usrRepo, name, email, pwd, role, isActive)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (tt httpTest) run(t *testing.T, app *testApp) *httptest.ResponseRecorder {
	t.Helper()
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(testConf, usr)
	token, err := echoapi.GenerateToken(claims, testConf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshalBody() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// checkErrorFields asserts a 400 reply reporting a failure on each of `fields`.
func checkErrorFields(t *testing.T, rec *httptest.ResponseRecorder, fields ...string) {
	t.Helper()
	assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", rec.Body.String())
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	unmarshalBody(t, rec, &body)
	assert.NotEmpty(t, body.Error)
	for _, f := range fields {
		assert.Contains(t, body.Fields, f)
	}
}

// do sends `body` (marshalled unless nil) and decodes a 2xx reply into `out` when given.
func (app *testApp) do(t *testing.T, method, path, token string, body, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		data = marshalObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.ServeHTTP(rec, req)
	if out != nil && rec.Code >= 200 && rec.Code < 300 {
		unmarshalBody(t, rec, out)
	}
	return rec
}
