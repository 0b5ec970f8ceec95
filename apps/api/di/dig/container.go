package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	echoapi "github.com/meryambn/mimiScaleUp-sub005/apps/api/echo"
	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	emailsvc "github.com/meryambn/mimiScaleUp-sub005/services/email"
	logsvc "github.com/meryambn/mimiScaleUp-sub005/services/logger"
	"github.com/meryambn/mimiScaleUp-sub005/services/realtime"
	"github.com/meryambn/mimiScaleUp-sub005/storage/database"
	sqlxrepos "github.com/meryambn/mimiScaleUp-sub005/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newHub(conf *core.Config, registry *prometheus.Registry, logger core.Logger) *realtime.Hub {
	return realtime.NewHub(conf.Realtime, registry, logger)
}

func newRelay(svc message.ServiceInterface) realtime.Handler {
	return message.NewRelay(svc)
}

type serverParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	Validator       *core.Validator
	UserSvc         user.ServiceInterface
	ProgramSvc      program.ServiceInterface
	NotificationSvc notification.ServiceInterface
	MessageSvc      message.ServiceInterface
	PlanningSvc     planning.ServiceInterface
	Hub             *realtime.Hub
	Relay           realtime.Handler
	Registry        *prometheus.Registry
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf.Server.Address, nil, &echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validator:       p.Validator,
		UserSvc:         p.UserSvc,
		ProgramSvc:      p.ProgramSvc,
		NotificationSvc: p.NotificationSvc,
		MessageSvc:      p.MessageSvc,
		PlanningSvc:     p.PlanningSvc,
		Hub:             p.Hub,
		Relay:           p.Relay,
		Registry:        p.Registry,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewDefaultValidator))
	must(c.Provide(newRegistry))
	must(c.Provide(newHub))
	must(c.Provide(func(h *realtime.Hub) core.Pusher { return h }))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewProgramRepository))
	must(c.Provide(sqlxrepos.NewNotificationRepository))
	must(c.Provide(sqlxrepos.NewMessageRepository))
	must(c.Provide(sqlxrepos.NewPlanningRepository))

	// services
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(notification.NewService, dig.As(new(notification.ServiceInterface), new(message.Notifier), new(program.Notifier))))
	must(c.Provide(program.NewService, dig.As(new(program.ServiceInterface), new(planning.PhaseFinder))))
	must(c.Provide(message.NewService, dig.As(new(message.ServiceInterface))))
	must(c.Provide(planning.NewService, dig.As(new(planning.ServiceInterface))))
	must(c.Provide(newRelay))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
