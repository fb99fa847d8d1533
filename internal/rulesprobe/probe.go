// Package rulesprobe checks the deployed store access rules from the outside.
//
// It talks to the Firestore REST API as an anonymous caller, so every request
// is judged by the rules exactly as a visitor's browser would be. It never
// re-implements the rules; it only reports what the store answered.
package rulesprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	firestorev1 "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"guestbookAPI/internal/guestbook"
)

// ProbeUsername marks the pending entry the probe leaves behind.
const ProbeUsername = "RulesProbe"

const (
	ExpectAllowed = "allowed"
	ExpectDenied  = "denied"
)

type Config struct {
	ProjectID  string
	Collection string
	// APIKey is the web API key; empty means fully unauthenticated.
	APIKey string
	// Endpoint overrides the REST endpoint, e.g. the emulator at http://localhost:8080/.
	Endpoint string
}

type Result struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Allowed  bool   `json:"allowed"`
	Pass     bool   `json:"pass"`
	Detail   string `json:"detail"`
}

type Report struct {
	Results []Result `json:"results"`
	Passed  bool     `json:"passed"`
}

type Probe struct {
	docs       *firestorev1.ProjectsDatabasesDocumentsService
	database   string
	collection string
	log        *slog.Logger
	newID      func() string
}

func New(ctx context.Context, cfg Config, log *slog.Logger) (*Probe, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("rules probe: project id is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = guestbook.DefaultCollection
	}

	opts := []option.ClientOption{option.WithoutAuthentication()}
	if cfg.APIKey != "" {
		opts = []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := firestorev1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("rules probe: create REST client: %w", err)
	}

	return &Probe{
		docs:       svc.Projects.Databases.Documents,
		database:   fmt.Sprintf("projects/%s/databases/(default)", cfg.ProjectID),
		collection: cfg.Collection,
		log:        log,
		newID:      uuid.NewString,
	}, nil
}

func (p *Probe) parent() string { return p.database + "/documents" }

func (p *Probe) docName(id string) string {
	return p.parent() + "/" + p.collection + "/" + id
}

// Run executes every check in order. A check that fails for a reason other
// than a permission answer is reported as failed with the error as detail.
func (p *Probe) Run(ctx context.Context) (Report, error) {
	pendingID := p.newID()
	approvedID := p.newID()

	checks := []struct {
		name     string
		expected string
		call     func(context.Context) error
	}{
		{"create pending entry", ExpectAllowed, func(ctx context.Context) error {
			return p.create(ctx, pendingID, "probe entry, safe to reject", false)
		}},
		{"read pending entry", ExpectDenied, func(ctx context.Context) error {
			_, err := p.docs.Get(p.docName(pendingID)).Context(ctx).Do()
			return err
		}},
		{"update entry", ExpectDenied, func(ctx context.Context) error {
			doc := &firestorev1.Document{Fields: map[string]firestorev1.Value{
				"message": {StringValue: "probe edit"},
			}}
			_, err := p.docs.Patch(p.docName(pendingID), doc).
				UpdateMaskFieldPaths("message").
				CurrentDocumentExists(true).
				Context(ctx).Do()
			return err
		}},
		{"delete entry", ExpectDenied, func(ctx context.Context) error {
			_, err := p.docs.Delete(p.docName(pendingID)).Context(ctx).Do()
			return err
		}},
		{"create approved entry", ExpectDenied, func(ctx context.Context) error {
			return p.create(ctx, approvedID, "probe entry, must be refused", true)
		}},
		{"list without approved filter", ExpectDenied, func(ctx context.Context) error {
			_, err := p.docs.List(p.parent(), p.collection).PageSize(1).Context(ctx).Do()
			return err
		}},
	}

	report := Report{Passed: true}
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := evaluate(c.name, c.expected, c.call(ctx))
		if !res.Pass {
			report.Passed = false
			p.log.Warn("rules probe: check failed", "check", res.Name, "expected", res.Expected, "detail", res.Detail)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (p *Probe) create(ctx context.Context, id, message string, approved bool) error {
	req := &firestorev1.CommitRequest{
		Writes: []*firestorev1.Write{{
			Update: &firestorev1.Document{
				Name: p.docName(id),
				Fields: map[string]firestorev1.Value{
					"username": {StringValue: ProbeUsername},
					"message":  {StringValue: message},
					"approved": {BooleanValue: approved, ForceSendFields: []string{"BooleanValue"}},
				},
			},
			UpdateTransforms: []*firestorev1.FieldTransform{
				{FieldPath: "createdAt", SetToServerValue: "REQUEST_TIME"},
			},
			CurrentDocument: &firestorev1.Precondition{Exists: false, ForceSendFields: []string{"Exists"}},
		}},
	}
	_, err := p.docs.Commit(p.database, req).Context(ctx).Do()
	return err
}

func evaluate(name, expected string, err error) Result {
	res := Result{Name: name, Expected: expected}

	var apiErr *googleapi.Error
	switch {
	case err == nil:
		res.Allowed = true
		res.Detail = "200 OK"
	case errors.As(err, &apiErr) && (apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusUnauthorized):
		res.Detail = fmt.Sprintf("%d %s", apiErr.Code, http.StatusText(apiErr.Code))
	case errors.As(err, &apiErr):
		// Neither allowed nor a permission answer: the rules were not what decided it.
		res.Detail = fmt.Sprintf("%d %s", apiErr.Code, apiErr.Message)
		return res
	default:
		res.Detail = err.Error()
		return res
	}

	res.Pass = res.Allowed == (expected == ExpectAllowed)
	return res
}
