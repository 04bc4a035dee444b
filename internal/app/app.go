// Package app wires repositories, services and background jobs from config.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/config"
	"github.com/unclebandit/churchcare-backend/internal/controller"
	"github.com/unclebandit/churchcare-backend/internal/handler"
	"github.com/unclebandit/churchcare-backend/internal/queue"
	"github.com/unclebandit/churchcare-backend/internal/repository"
	"github.com/unclebandit/churchcare-backend/internal/scheduler"
	"github.com/unclebandit/churchcare-backend/internal/service"
	"github.com/unclebandit/churchcare-backend/internal/validator"
)

// schedulerJobTimeout bounds one run of a scheduled job.
const schedulerJobTimeout = 10 * time.Minute

type App struct {
	Config *config.Config
	Log    logrus.FieldLogger
	Queue  queue.Queue
	Tokens *auth.TokenManager

	Auth       *service.AuthService
	Users      *service.UserService
	Members    *service.MemberService
	Messages   *service.MessageService
	Templates  *service.TemplateService
	Automation *service.AutomationService
	Engine     *service.AutomationEngine
	Welfare    *service.WelfareService
	Analytics  *service.AnalyticsService
	Delivery   *service.DeliveryProcessor
}

// OpenQueue connects the queue driver named by QUEUE_DRIVER.
func OpenQueue(cfg *config.Config, log logrus.FieldLogger) (queue.Queue, error) {
	if cfg.QueueDriver == "amqp" {
		return queue.DialAMQP(cfg.AMQPURL, log)
	}
	return queue.NewInMemoryQueue(log), nil
}

func New(cfg *config.Config, conn *sql.DB, q queue.Queue, log logrus.FieldLogger) *App {
	var (
		orgs      = &repository.OrganizationRepository{DB: conn}
		users     = &repository.UserRepository{DB: conn}
		members   = &repository.MemberRepository{DB: conn}
		messages  = &repository.MessageRepository{DB: conn}
		templates = &repository.TemplateRepository{DB: conn}
		rules     = &repository.AutomationRepository{DB: conn}
		welfare   = &repository.WelfareRepository{DB: conn}
		analytics = &repository.AnalyticsRepository{DB: conn}

		v         = validator.New()
		tokens    = auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
		passwords = auth.NewPasswordHasher(cfg.BcryptSaltRounds)
		now       = time.Now
	)

	a := &App{Config: cfg, Log: log, Queue: q, Tokens: tokens}
	a.Auth = &service.AuthService{Users: users, Orgs: orgs, Tokens: tokens, Passwords: passwords, Validator: v, Log: log}
	a.Users = &service.UserService{Users: users, Passwords: passwords, Validator: v, Log: log}
	a.Members = &service.MemberService{Members: members, Validator: v, Log: log, Now: now}
	a.Messages = &service.MessageService{
		Messages:  messages,
		Members:   members,
		Templates: templates,
		Queue:     q,
		Topic:     cfg.DeliveryQueue,
		Validator: v,
		Log:       log,
		Now:       now,
	}
	a.Templates = &service.TemplateService{Templates: templates, Messages: messages, Members: members, Orgs: orgs, Validator: v, Log: log}
	a.Engine = &service.AutomationEngine{
		Rules:      rules,
		Members:    members,
		Templates:  templates,
		Messages:   messages,
		Dispatcher: a.Messages,
		Log:        log,
		Now:        now,
	}
	a.Automation = &service.AutomationService{Rules: rules, Engine: a.Engine, Validator: v, Log: log}
	a.Welfare = &service.WelfareService{Requests: welfare, Members: members, Validator: v, Log: log, Now: now}
	a.Analytics = &service.AnalyticsService{Analytics: analytics, Now: now}
	a.Delivery = &service.DeliveryProcessor{
		Messages: messages,
		Members:  members,
		Orgs:     orgs,
		Sender:   &service.ChannelSender{Default: &service.LogSender{Log: log}},
		Log:      log,
		Now:      now,
	}
	return a
}

// ConsumeDeliveries subscribes the delivery processor to the delivery topic.
func (a *App) ConsumeDeliveries() error {
	return a.Queue.Subscribe(a.Config.DeliveryQueue, a.Delivery.Handle)
}

func (a *App) Controllers() handler.Controllers {
	return handler.Controllers{
		Auth:       &controller.AuthController{Auth: a.Auth, Log: a.Log},
		Users:      &controller.UserController{Users: a.Users, Log: a.Log},
		Members:    &controller.MemberController{Members: a.Members, Log: a.Log},
		Messages:   &controller.MessageController{Messages: a.Messages, Log: a.Log},
		Templates:  &controller.TemplateController{Templates: a.Templates, Log: a.Log},
		Automation: &controller.AutomationController{Automation: a.Automation, Log: a.Log},
		Welfare:    &controller.WelfareController{Welfare: a.Welfare, Log: a.Log},
		Analytics:  &controller.AnalyticsController{Analytics: a.Analytics, Log: a.Log},
	}
}

// Scheduler registers the automation and scheduled-message jobs. The caller
// starts and stops it.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.Log.WithField("component", "scheduler"), schedulerJobTimeout)
	if err := s.Add(scheduler.JobAutomation, a.Config.AutomationCron, scheduler.AutomationJob(a.Engine, a.Log)); err != nil {
		return nil, err
	}
	if err := s.Add(scheduler.JobScheduledMessages, a.Config.ScheduledMessagesCron, scheduler.ScheduledMessagesJob(a.Messages, a.Log)); err != nil {
		return nil, err
	}
	return s, nil
}

// StartBackground consumes delivery jobs and, when enabled, starts the
// scheduler. The returned func stops the scheduler.
func (a *App) StartBackground() (func(context.Context), error) {
	if err := a.ConsumeDeliveries(); err != nil {
		return nil, err
	}
	if !a.Config.SchedulerEnabled {
		return func(context.Context) {}, nil
	}

	s, err := a.Scheduler()
	if err != nil {
		return nil, err
	}
	s.Start()
	return func(ctx context.Context) {
		if err := s.Stop(ctx); err != nil {
			a.Log.WithError(err).Warn("scheduler did not stop cleanly")
		}
	}, nil
}
