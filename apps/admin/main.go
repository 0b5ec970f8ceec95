package main

import (
	"log"
	"os"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	appfs "github.com/meryambn/mimiScaleUp-sub005/fs"
	emailsvc "github.com/meryambn/mimiScaleUp-sub005/services/email"
	logsvc "github.com/meryambn/mimiScaleUp-sub005/services/logger"
	"github.com/meryambn/mimiScaleUp-sub005/storage/database"
	sqlxrepos "github.com/meryambn/mimiScaleUp-sub005/storage/database/sqlx"
)

// offline is the pusher of a process without websocket connections: notifications are only stored.
type offline struct{}

func (offline) Push(core.Identity, string, interface{}) bool { return false }

var _ core.Pusher = offline{}

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer func() { _ = db.Close() }()
	errAndDie(logger, db.Ping())

	validator := core.NewDefaultValidator()
	user.InitValidators(validator.Engine(), validator.Translator())
	core.ParseEmailTemplates(appfs.FS, "templates/email", logger, false)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), offline{}, validator, logger)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrRepo:    sqlxrepos.NewUserRepository(db),
		programSvc: program.NewService(sqlxrepos.NewProgramRepository(db), notifSvc, mailSvc, validator, logger),
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
