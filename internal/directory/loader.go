package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/jgxilos/wdd231/internal/models"
)

// MembersPath is the fixed location of the member document relative to the
// site root.
const MembersPath = "data/members.json"

// ErrorKind classifies a failed load.
type ErrorKind int

const (
	// KindTransport covers network failures and non-2xx responses.
	KindTransport ErrorKind = iota + 1
	// KindEmpty is a well-formed document without records.
	KindEmpty
	// KindUnexpected is a body that is not the expected JSON shape.
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEmpty:
		return "empty"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// LoadError is returned by Loader.Load. Status is the HTTP status for
// transport failures that got a response, and 0 otherwise.
type LoadError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindTransport:
		if e.Status != 0 {
			return fmt.Sprintf("HTTP error! status: %d", e.Status)
		}
		return fmt.Sprintf("request failed: %v", e.Err)
	case KindEmpty:
		return "No member data found"
	default:
		return fmt.Sprintf("unexpected member data: %v", e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

func isKind(err error, k ErrorKind) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == k
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsEmpty reports whether err is an empty-document failure.
func IsEmpty(err error) bool { return isKind(err, KindEmpty) }

// IsUnexpected reports whether err is a parse or shape failure.
func IsUnexpected(err error) bool { return isKind(err, KindUnexpected) }

// Source abstracts the member data fetch so the controller does not depend on
// HTTP.
type Source interface {
	Load(ctx context.Context) ([]models.Member, error)
}

// Loader fetches data/members.json relative to BaseURL.
type Loader struct {
	client  *http.Client
	baseURL *url.URL
	logger  *zap.Logger
}

// NewLoader builds a loader. A nil client means http.DefaultClient, which
// applies no timeout.
func NewLoader(client *http.Client, baseURL string, logger *zap.Logger) (*Loader, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid data base url %q: %w", baseURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{client: client, baseURL: u, logger: logger}, nil
}

// URL returns the resolved location of the member document.
func (l *Loader) URL() string {
	return l.resolve(MembersPath)
}

func (l *Loader) resolve(path string) string {
	return l.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// Fetch decodes any JSON document relative to the loader's base URL using
// the same failure classification as Load.
func (l *Loader) Fetch(ctx context.Context, path string, v any) error {
	u := l.resolve(path)
	if err := FetchJSON(ctx, l.client, u, v); err != nil {
		l.logger.Warn("data load failed", zap.String("url", u), zap.Error(err))
		return err
	}
	return nil
}

type membersDocument struct {
	Members []models.Member `json:"members"`
}

// Load requests the member document and returns its records in source order.
func (l *Loader) Load(ctx context.Context) ([]models.Member, error) {
	var doc membersDocument
	if err := FetchJSON(ctx, l.client, l.URL(), &doc); err != nil {
		l.logger.Warn("member load failed", zap.String("url", l.URL()), zap.Error(err))
		return nil, err
	}
	if len(doc.Members) == 0 {
		return nil, &LoadError{Kind: KindEmpty}
	}
	for i, m := range doc.Members {
		if err := m.Validate(); err != nil {
			err = &LoadError{Kind: KindUnexpected, Err: fmt.Errorf("record %d: %w", i, err)}
			l.logger.Warn("member load failed", zap.String("url", l.URL()), zap.Error(err))
			return nil, err
		}
	}
	l.logger.Debug("members loaded", zap.Int("count", len(doc.Members)))
	return doc.Members, nil
}

// FetchJSON performs a GET and decodes the body into v, classifying failures
// as LoadError kinds. It is shared by the other data-backed widgets.
func FetchJSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &LoadError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &LoadError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &LoadError{Kind: KindTransport, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &LoadError{Kind: KindUnexpected, Err: err}
	}
	return nil
}

// LocalClient serves requests from the directory root, so a missing data file
// surfaces as a 404 exactly like a remote source would.
func LocalClient(root string) *http.Client {
	return &http.Client{Transport: http.NewFileTransport(http.Dir(root))}
}
