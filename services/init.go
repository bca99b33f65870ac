package services

import (
	"time"

	"github.com/vaulty/mailvault/config"
	"github.com/vaulty/mailvault/internal/events"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/repository"
	"github.com/vaulty/mailvault/services/admission"
	"github.com/vaulty/mailvault/services/dispatch"
	"github.com/vaulty/mailvault/services/fetch"
	"github.com/vaulty/mailvault/services/session"
	"github.com/vaulty/mailvault/services/storage"
)

type Services struct {
	SessionCache     *session.Cache
	EventsPublisher  *events.Publisher
	AdmissionService *admission.Service
	DispatchService  *dispatch.Service
	Fetcher          *fetch.Fetcher
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	publisher, err := events.NewPublisher(cfg.AppConfig.RabbitMQURL, log)
	if err != nil {
		return nil, err
	}

	sessions := session.NewCache()

	admissionService := admission.NewService(
		repos.AddressRepository,
		repos.EmailRepository,
		repos.MailLogRepository,
		sessions,
		publisher,
		log,
	)

	dispatchService := dispatch.NewService(
		repos.AddressRepository,
		repos.EmailRepository,
		repos.MailLogRepository,
		storage.NewBackend,
		publisher,
		log,
	)

	fetcher := fetch.NewFetcher(
		cfg.MailgunConfig.APIKey,
		cfg.MailgunConfig.FetchConcurrency,
		time.Duration(cfg.MailgunConfig.FetchTimeoutSeconds)*time.Second,
		dispatchService,
		log,
	)

	return &Services{
		SessionCache:     sessions,
		EventsPublisher:  publisher,
		AdmissionService: admissionService,
		DispatchService:  dispatchService,
		Fetcher:          fetcher,
	}, nil
}
