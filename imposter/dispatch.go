package imposter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imposterwatch/imposterwatch/client"
	"github.com/imposterwatch/imposterwatch/syntax"

	"golang.org/x/time/rate"
)

const ListItemCollection = "app.bsky.graph.listitem"

// RecordCreator writes a record to the authenticated account's repo. Satisfied by *client.APIClient.
type RecordCreator interface {
	CreateRecord(ctx context.Context, collection string, record any) (*client.CreateRecordOutput, error)
}

// BlockAction is the intent to add one account to the moderation list.
type BlockAction struct {
	SubjectDID string
	ListURI    string
	CreatedAt  time.Time
}

// ListItem is an app.bsky.graph.listitem record.
type ListItem struct {
	Type      string `json:"$type"`
	Subject   string `json:"subject"`
	List      string `json:"list"`
	CreatedAt string `json:"createdAt"`
}

func (a *BlockAction) Record() *ListItem {
	return &ListItem{
		Type:      ListItemCollection,
		Subject:   a.SubjectDID,
		List:      a.ListURI,
		CreatedAt: syntax.DatetimeString(a.CreatedAt),
	}
}

type ActionError struct {
	Subject string
	List    string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("adding %s to list %s: %s", e.Subject, e.List, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Dispatcher performs block actions. Each call to Dispatch results in at most one createRecord request; repeat
// requests for the same subject are passed through.
type Dispatcher struct {
	Client  RecordCreator
	Limiter *rate.Limiter
	Logger  *slog.Logger

	now func() time.Time
}

// NewDispatcher returns a dispatcher. A maxPerSecond of zero or less disables rate limiting.
func NewDispatcher(c RecordCreator, maxPerSecond float64, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		Client: c,
		Logger: logger.With("component", "dispatcher"),
		now:    time.Now,
	}
	if maxPerSecond > 0 {
		burst := int(maxPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.Limiter = rate.NewLimiter(rate.Limit(maxPerSecond), burst)
	}
	return d
}

// Dispatch adds did to the list at listURI. Failures are returned as *ActionError and are not retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, did, listURI string) error {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	action := BlockAction{
		SubjectDID: did,
		ListURI:    listURI,
		CreatedAt:  now(),
	}

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return &ActionError{Subject: did, List: listURI, Err: fmt.Errorf("waiting for rate limit: %w", err)}
		}
	}

	start := time.Now()
	out, err := d.Client.CreateRecord(ctx, ListItemCollection, action.Record())
	actionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return &ActionError{Subject: did, List: listURI, Err: err}
	}
	if d.Logger != nil {
		d.Logger.Debug("created list item", "subject", did, "uri", out.Uri, "cid", out.Cid)
	}
	return nil
}
