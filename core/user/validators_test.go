package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

type loggerStub struct{}

func (loggerStub) Debug(string, ...interface{}) {}
func (loggerStub) Info(string, ...interface{})  {}
func (loggerStub) Warn(string, ...interface{})  {}
func (loggerStub) Error(string, ...interface{}) {}
func (loggerStub) Fatal(string, ...interface{}) {}

func newTestValidator() *core.Validator {
	v := core.NewDefaultValidator()
	InitValidators(v.Engine(), v.Translator())
	LoadCommonPasswords(strings.NewReader("password1!\nAzerty123$\n"), loggerStub{})
	return v
}

func TestNewUserValidation(t *testing.T) {
	v := newTestValidator()

	valid := NewUser{
		Name:            "John Doe",
		Email:           "john@test.cd",
		Role:            RoleMentor,
		Password:        "Xq9#Lt4$Zr",
		PasswordConfirm: "Xq9#Lt4$Zr",
	}

	tests := []struct {
		name      string
		modify    func(nu *NewUser)
		wantField string
		wantMsg   string
	}{
		{name: "valid"},
		{name: "missing name", modify: func(nu *NewUser) { nu.Name = "" }, wantField: "name", wantMsg: "this field is required"},
		{name: "invalid email", modify: func(nu *NewUser) { nu.Email = "lol" }, wantField: "email"},
		{name: "invalid role", modify: func(nu *NewUser) { nu.Role = "investor" }, wantField: "role", wantMsg: userRoleText},
		{name: "passwords mismatch", modify: func(nu *NewUser) { nu.PasswordConfirm = "nope" }, wantField: "password_confirm"},
		{
			name:   "password too short",
			modify: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Ab1!", "Ab1!" }, wantField: "password", wantMsg: pwdMinLenText,
		},
		{
			name:   "password with space",
			modify: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Ab1! xyz9", "Ab1! xyz9" }, wantField: "password", wantMsg: pwdNoSpaceText,
		},
		{
			name:   "all numeric password",
			modify: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "1234567890", "1234567890" }, wantField: "password", wantMsg: pwdNotAllNumText,
		},
		{
			name:   "simple password",
			modify: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "abcdefgh1", "abcdefgh1" }, wantField: "password", wantMsg: pwdComplexityText,
		},
		{
			name:   "password similar to email",
			modify: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "John@test.cd1", "John@test.cd1" }, wantField: "password", wantMsg: pwdAttrSimText,
		},
		{
			name:   "common password",
			modify: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "Azerty123$", "Azerty123$" }, wantField: "password", wantMsg: pwdNoCommonText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid
			if tt.modify != nil {
				tt.modify(&nu)
			}
			err := v.Struct(&nu)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "expected *core.ValidationError, got %T", err)

			var found bool
			for _, fe := range vErr.Fields {
				if fe.Field == tt.wantField {
					found = true
					if tt.wantMsg != "" {
						assert.Equal(t, tt.wantMsg, fe.Error)
					}
				}
			}
			assert.True(t, found, "no error for field %q in %+v", tt.wantField, vErr.Fields)
		})
	}
}

func TestUpdateUserValidation_PasswordOptional(t *testing.T) {
	v := newTestValidator()

	assert.NoError(t, v.Struct(&UpdateUser{Name: "Jane"}))
	assert.Error(t, v.Struct(&UpdateUser{Name: "Jane", Password: "short"}))
	assert.NoError(t, v.Struct(&UpdateUser{Name: "Jane", Password: "Xq9#Lt4$Zr", PasswordConfirm: "Xq9#Lt4$Zr"}))
}

func TestIsValidRole(t *testing.T) {
	for _, role := range AllRoles {
		assert.True(t, IsValidRole(role), role)
	}
	assert.False(t, IsValidRole("admin:"))
	assert.False(t, IsValidRole(""))
}
