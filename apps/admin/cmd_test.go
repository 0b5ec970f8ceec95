package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	emailsvc "github.com/meryambn/mimiScaleUp-sub005/services/email"
	dummydb "github.com/meryambn/mimiScaleUp-sub005/storage/database/dummy"
	"github.com/meryambn/mimiScaleUp-sub005/testutil"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	logger := &testutil.Logger{}
	validator := testutil.NewValidator()
	conf := &core.Config{AppName: "ScaleUp", TestMode: true}

	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), testutil.NewPusher(), validator, logger)
	progSvc := program.NewService(
		dummydb.NewProgramRepository(db), notifSvc, emailsvc.NewConsoleServiceMock(conf, logger), validator, logger,
	)

	var out bytes.Buffer
	return &commandLine{usrRepo: usrRepo, programSvc: progSvc, out: &out}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	checkFn    func(error) bool
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.checkFn != nil:
		assert.True(t, tt.checkFn(err), "unexpected error: %v", err)
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "evaluations", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_users(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, usrRepo, "Amina", "amina@rocket.test", "Rk7#tq!Vbn2w", user.RoleStartup, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "adduser: no email", args: []string{"adduser"}, extra: extra{pwd: "x"}, wantErrStr: `required flag(s) "email" not set`},
		{name: "adduser: no password", args: []string{"adduser", "--email", "boss@scaleup.test"}, wantErr: errHelp},
		{name: "adduser: bad role", args: []string{"adduser", "--email", "boss@scaleup.test", "--role", "investor"}, extra: extra{pwd: "x"}, wantErrStr: "role: unknown role investor"},
		{name: "adduser", args: []string{"adduser", "--name", "Boss", "--email", " Boss@ScaleUp.test"}, extra: extra{pwd: "s3cret!pass"}},
		{name: "adduser: existing email", args: []string{"adduser", "--email", usr.Email, "--role", user.RoleMentor}, extra: extra{pwd: "an0ther!pass"}},
		{name: "resetpassword: no email", args: []string{"resetpassword"}, extra: extra{pwd: "x"}, wantErrStr: `required flag(s) "email" not set`},
		{name: "resetpassword: no password", args: []string{"resetpassword", "--email", usr.Email}, wantErr: errHelp},
		{name: "resetpassword: user not found", args: []string{"resetpassword", "--email", "ghost@rocket.test"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "resetpassword", args: []string{"resetpassword", "--email", "BOSS@scaleup.test"}, extra: extra{pwd: "n3w!secret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	boss, err := usrRepo.GetUserByEmail(ctx, "boss@scaleup.test")
	require.NoError(t, err)
	assert.Equal(t, "Boss", boss.Name)
	assert.Equal(t, user.RoleAdmin, boss.Role)
	assert.True(t, boss.IsActive)
	assert.NoError(t, boss.CheckPassword("n3w!secret"))

	amina, err := usrRepo.GetUserByEmail(ctx, usr.Email)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, amina.ID, "updated in place")
	assert.Equal(t, "Amina", amina.Name)
	assert.Equal(t, user.RoleMentor, amina.Role)
	assert.True(t, amina.IsActive, "reactivated")
	assert.NoError(t, amina.CheckPassword("an0ther!pass"))

	assert.Contains(t, out.String(), "boss@scaleup.test, admin) saved")
}

func Test_commandLine_winner(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	amina := testutil.CreateUser(t, usrRepo, "Amina", "amina@rocket.test", "Rk7#tq!Vbn2w", user.RoleStartup, true)

	prog, err := cli.programSvc.CreateProgram(ctx, program.NewProgram{Name: "Spring Batch"})
	require.NoError(t, err)
	final, err := cli.programSvc.CreatePhase(ctx, program.NewPhase{ProgramID: prog.ID, Name: "Demo day", IsTerminal: true})
	require.NoError(t, err)
	cand, err := cli.programSvc.CreateCandidature(ctx, program.NewCandidature{
		ProgramID: prog.ID, EntityType: program.EntityTeam, EntityID: 10, Name: "Rocket", MemberIDs: []int{amina.ID},
	})
	require.NoError(t, err)

	progID := strconv.Itoa(prog.ID)
	declare := []string{"winner", "declare", "--phase", strconv.Itoa(final.ID), "--candidature", strconv.Itoa(cand.ID)}

	tests := []cliTest{
		{name: "show: no args", args: []string{"winner", "show"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "show: not a number", args: []string{"winner", "show", "abc"}, wantErrStr: "programId: must be a number"},
		{name: "show: unknown program", args: []string{"winner", "show", "999"}, wantErrStr: "programme 999 not found"},
		{name: "show: no winner yet", args: []string{"winner", "show", progID}},
		{name: "declare: missing ids", args: []string{"winner", "declare"}, checkFn: core.IsValidation},
		{name: "declare", args: declare},
		{name: "declare twice", args: declare, wantErr: program.ErrWinnerExists},
		{name: "show", args: []string{"winner", "show", progID}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	assert.Contains(t, out.String(), fmt.Sprintf("program %d has no winner yet", prog.ID))
	assert.Contains(t, out.String(), fmt.Sprintf("Spring Batch: Rocket (candidature %d) won at phase \"Demo day\"", cand.ID))
}
