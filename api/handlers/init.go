package handlers

import "github.com/vaulty/mailvault/services"

type APIHandlers struct {
	Postfix *PostfixHandler
	Mailgun *MailgunHandler
}

func InitHandlers(s *services.Services) *APIHandlers {
	return &APIHandlers{
		Postfix: NewPostfixHandler(s.AdmissionService, s.SessionCache, s.DispatchService),
		Mailgun: NewMailgunHandler(s.AdmissionService, s.DispatchService, s.Fetcher),
	}
}
