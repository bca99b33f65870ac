// Package fetch retrieves remote attachment payloads for the pull-model
// source and feeds them through the regular dispatch path. The whole batch
// is all-or-nothing: one failed fetch fails the batch.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vaulty/mailvault/dto"
	"github.com/vaulty/mailvault/internal/logger"
	"github.com/vaulty/mailvault/internal/tracing"
	"github.com/vaulty/mailvault/services/dispatch"
	"github.com/vaulty/mailvault/services/session"
)

const (
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 30 * time.Second
)

type Fetcher struct {
	httpClient   *http.Client
	apiKey       string
	concurrency  int
	fetchTimeout time.Duration
	dispatcher   *dispatch.Service
	log          logger.Logger
}

// NewFetcher builds a fetcher. apiKey authenticates against the provider's
// attachment URLs (basic auth, user "api"); empty disables auth.
func NewFetcher(apiKey string, concurrency int, fetchTimeout time.Duration, dispatcher *dispatch.Service, log logger.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Fetcher{
		httpClient:   &http.Client{},
		apiKey:       apiKey,
		concurrency:  concurrency,
		fetchTimeout: fetchTimeout,
		dispatcher:   dispatcher,
		log:          log,
	}
}

// FetchAndDispatch pulls every descriptor concurrently (bounded) and streams
// each payload to the dispatcher. The first failure cancels the remaining
// fetches and fails the batch; attachments already dispatched stay put, the
// email's persisted status reflects the failure.
func (f *Fetcher) FetchAndDispatch(ctx context.Context, view session.View, descriptors []dto.AttachmentDescriptor) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Fetcher.FetchAndDispatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEmailID(span, view.Email.ID)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, d := range descriptors {
		d := d
		g.Go(func() error {
			return f.fetchOne(groupCtx, view, d)
		})
	}

	if err := g.Wait(); err != nil {
		tracing.TraceErr(span, err)
		// Upload failures already marked the email; a pure fetch failure
		// has not touched it yet.
		var dispatchErr *dispatch.Error
		if errors.As(err, &dispatchErr) && dispatchErr.Op == "fetch" {
			f.dispatcher.MarkFailed(ctx, view, dispatchErr)
		}
		return err
	}

	f.log.Infof("Fetched all %d attachments for %s", len(descriptors), view.Email.ID)
	return nil
}

func (f *Fetcher) fetchOne(ctx context.Context, view session.View, d dto.AttachmentDescriptor) error {
	// Each fetch is independently time-bounded so one hung download cannot
	// stall the batch forever.
	fetchCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, d.URL, nil)
	if err != nil {
		return &dispatch.Error{Op: "fetch", Name: d.Name, Err: err}
	}
	if f.apiKey != "" {
		req.SetBasicAuth("api", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &dispatch.Error{Op: "fetch", Name: d.Name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &dispatch.Error{
			Op:   "fetch",
			Name: d.Name,
			Err:  errors.Errorf("unexpected status %d fetching %s", resp.StatusCode, d.URL),
		}
	}

	// The response body streams straight into the storage upload
	return f.dispatcher.Handle(fetchCtx, view, resp.Body, d.Name, d.Size)
}
