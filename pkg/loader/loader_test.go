package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/civicworks/actionnetwork-loader/internal/testutil"
	"github.com/civicworks/actionnetwork-loader/pkg/client"
	"github.com/civicworks/actionnetwork-loader/pkg/contacts"
	"github.com/civicworks/actionnetwork-loader/pkg/pagination"
)

type fakeStore struct {
	deleted   []string
	rows      []contacts.NormalizedContact
	table     string
	batchSize int
	deleteErr error
	insertErr error
}

func (s *fakeStore) DeleteByCampaign(ctx context.Context, campaignID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, campaignID)
	return nil
}

func (s *fakeStore) BulkInsert(ctx context.Context, table string, rows []contacts.NormalizedContact, batchSize int) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.table = table
	s.batchSize = batchSize
	s.rows = append(s.rows, rows...)
	return nil
}

type completion struct {
	job            Job
	loadErr        error
	requestedCount string
	resultJSON     string
}

type fakeNotifier struct {
	completions []completion
	err         error
}

func (n *fakeNotifier) CompleteLoad(ctx context.Context, job Job, loadErr error, requestedCount string, resultJSON string) error {
	n.completions = append(n.completions, completion{job, loadErr, requestedCount, resultJSON})
	return n.err
}

type fakeResolver struct {
	contacts []contacts.NormalizedContact
	err      error
}

func (r *fakeResolver) ResolveContacts(ctx context.Context, listIdentifier, campaignID, organization string, maxContacts int) ([]contacts.NormalizedContact, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.contacts, nil
}

type fakeLists struct {
	items []json.RawMessage
	err   error
}

func (f *fakeLists) FetchItems(ctx context.Context, resource, extractKey, organization string, maxItems int) ([]json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeTTL struct {
	seconds int
}

func (t fakeTTL) CacheTTLSeconds(organization string) int {
	return t.seconds
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()

	if cfg.Resolver == nil {
		cfg.Resolver = &fakeResolver{}
	}
	if cfg.Lists == nil {
		cfg.Lists = &fakeLists{}
	}
	if cfg.Store == nil {
		cfg.Store = &fakeStore{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = &fakeNotifier{}
	}
	if cfg.TTL == nil {
		cfg.TTL = fakeTTL{seconds: 1800}
	}

	orch, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return orch
}

func sampleContacts(n string, count int) []contacts.NormalizedContact {
	rows := make([]contacts.NormalizedContact, count)
	for i := range rows {
		rows[i] = contacts.NormalizedContact{
			FirstName:      fmt.Sprintf("%s-%d", n, i),
			Cell:           "+15551234567",
			Zip:            "10001",
			TimezoneOffset: "-5_1",
			MessageStatus:  contacts.MessageStatusInitial,
			CampaignID:     "campaign-7",
		}
	}
	return rows
}

func TestNew_Validation(t *testing.T) {
	base := Config{
		Resolver: &fakeResolver{},
		Lists:    &fakeLists{},
		Store:    &fakeStore{},
		Notifier: &fakeNotifier{},
		TTL:      fakeTTL{},
	}

	if _, err := New(base); err != nil {
		t.Errorf("New() with full config failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing resolver", func(c *Config) { c.Resolver = nil }},
		{"missing lists", func(c *Config) { c.Lists = nil }},
		{"missing store", func(c *Config) { c.Store = nil }},
		{"missing notifier", func(c *Config) { c.Notifier = nil }},
		{"missing ttl", func(c *Config) { c.TTL = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	resolver := &fakeResolver{contacts: sampleContacts("c", 7)}

	orch := newTestOrchestrator(t, Config{Resolver: resolver, Store: store, Notifier: notifier})

	job := Job{
		ID:         "job-1",
		CampaignID: "campaign-7",
		Payload:    `{"listIdentifier": "abc", "requestContactCount": 50}`,
	}

	if err := orch.Load(context.Background(), job, 50, "org"); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "campaign-7" {
		t.Errorf("Deleted campaigns = %v, want [campaign-7]", store.deleted)
	}
	if store.table != ContactTable {
		t.Errorf("Insert table = %q, want %q", store.table, ContactTable)
	}
	if store.batchSize != InsertBatchSize {
		t.Errorf("Batch size = %d, want %d", store.batchSize, InsertBatchSize)
	}
	if len(store.rows) != 7 {
		t.Errorf("Inserted %d rows, want 7", len(store.rows))
	}

	if len(notifier.completions) != 1 {
		t.Fatalf("Notifier called %d times, want exactly 1", len(notifier.completions))
	}
	done := notifier.completions[0]
	if done.loadErr != nil {
		t.Errorf("Completion error = %v, want nil", done.loadErr)
	}
	if done.requestedCount != "50" {
		t.Errorf("Requested count = %q, want %q", done.requestedCount, "50")
	}
	if done.resultJSON != `{"finalCount":7}` {
		t.Errorf("Result = %q, want %q", done.resultJSON, `{"finalCount":7}`)
	}
}

func TestLoad_BadPayloadAbortsBeforeMutation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"missing list identifier", `{"requestContactCount": 50}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			notifier := &fakeNotifier{}
			orch := newTestOrchestrator(t, Config{Store: store, Notifier: notifier})

			job := Job{ID: "job-1", CampaignID: "campaign-7", Payload: tt.payload}

			err := orch.Load(context.Background(), job, 50, "org")

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Expected *ParseError, got %v", err)
			}
			if len(store.deleted) != 0 {
				t.Error("Prior contacts were deleted despite a bad payload")
			}
			if len(notifier.completions) != 1 {
				t.Fatalf("Notifier called %d times, want exactly 1", len(notifier.completions))
			}
			if notifier.completions[0].loadErr == nil {
				t.Error("Failure completion carries no error")
			}
		})
	}
}

func TestLoad_StepFailuresReachNotifierOnce(t *testing.T) {
	boom := errors.New("boom")
	payload := `{"listIdentifier": "abc", "requestContactCount": 50}`

	tests := []struct {
		name string
		cfg  Config
	}{
		{"delete failure", Config{Store: &fakeStore{deleteErr: boom}}},
		{"resolve failure", Config{Resolver: &fakeResolver{err: boom}}},
		{"insert failure", Config{
			Resolver: &fakeResolver{contacts: sampleContacts("c", 3)},
			Store:    &fakeStore{insertErr: boom},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			tt.cfg.Notifier = notifier
			orch := newTestOrchestrator(t, tt.cfg)

			job := Job{ID: "job-1", CampaignID: "campaign-7", Payload: payload}

			err := orch.Load(context.Background(), job, 50, "org")
			if !errors.Is(err, boom) {
				t.Errorf("Load() error = %v, want the step failure", err)
			}

			if len(notifier.completions) != 1 {
				t.Fatalf("Notifier called %d times, want exactly 1", len(notifier.completions))
			}
			done := notifier.completions[0]
			if !errors.Is(done.loadErr, boom) {
				t.Errorf("Completion error = %v, want the step failure", done.loadErr)
			}
			if done.requestedCount != "50" {
				t.Errorf("Requested count = %q, want %q", done.requestedCount, "50")
			}
			if done.resultJSON != "" {
				t.Errorf("Result = %q, want empty on failure", done.resultJSON)
			}
		})
	}
}

func TestLoad_BrokenNotifierDoesNotMaskLoadError(t *testing.T) {
	boom := errors.New("resolve failed")
	notifier := &fakeNotifier{err: errors.New("notifier down")}

	orch := newTestOrchestrator(t, Config{
		Resolver: &fakeResolver{err: boom},
		Notifier: notifier,
	})

	job := Job{
		ID:         "job-1",
		CampaignID: "campaign-7",
		Payload:    `{"listIdentifier": "abc", "requestContactCount": 50}`,
	}

	if err := orch.Load(context.Background(), job, 50, "org"); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want the original load failure", err)
	}
}

// End-to-end load through the real client, paginator, and resolver
// against the mock upstream.
func TestLoad_EndToEnd(t *testing.T) {
	mock := testutil.NewMockActionNetwork()
	defer mock.Close()

	mock.SetCollection("lists/abc/items", "items", testutil.MembershipItems(50), 25)
	for i := 0; i < 50; i++ {
		mock.SetPerson(fmt.Sprintf("person-%d", i),
			testutil.PersonFixture(fmt.Sprintf("Given%d", i), "Family", "5551234567"))
	}

	c, err := client.New(client.Config{Credentials: mock.Credentials("tok")})
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}

	clock := testutil.NewFakeClock(time.Unix(0, 0))
	cfg := pagination.DefaultConfig()
	cfg.Clock = clock
	paginator := pagination.New(c, cfg)

	resolver := contacts.NewResolver(paginator, c, contacts.ZipPrefixTimezone{})

	store := &fakeStore{}
	notifier := &fakeNotifier{}
	orch := newTestOrchestrator(t, Config{
		Resolver: resolver,
		Lists:    paginator,
		Store:    store,
		Notifier: notifier,
	})

	job := Job{
		ID:         "job-1",
		CampaignID: "campaign-7",
		Payload:    `{"listIdentifier": "abc", "requestContactCount": 50}`,
	}

	if err := orch.Load(context.Background(), job, 50, "org"); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(store.rows) != 50 {
		t.Fatalf("Inserted %d contacts, want 50", len(store.rows))
	}
	for _, row := range store.rows {
		if row.Cell != "+15551234567" {
			t.Errorf("Cell = %q, want %q", row.Cell, "+15551234567")
		}
		if row.Zip != "10001" {
			t.Errorf("Zip = %q, want %q", row.Zip, "10001")
		}
		if row.MessageStatus != "needsMessage" {
			t.Errorf("MessageStatus = %q, want %q", row.MessageStatus, "needsMessage")
		}
		if row.CampaignID != "campaign-7" {
			t.Errorf("CampaignID = %q, want %q", row.CampaignID, "campaign-7")
		}
	}

	// 50 memberships at 25 per page means two membership pages.
	if got := mock.RequestsFor(testutil.BasePath + "/lists/abc/items?page=1"); got != 1 {
		t.Errorf("Page 1 fetched %d times, want 1", got)
	}
	if got := mock.RequestsFor(testutil.BasePath + "/lists/abc/items?page=2"); got != 1 {
		t.Errorf("Page 2 fetched %d times, want 1", got)
	}

	if len(notifier.completions) != 1 {
		t.Fatalf("Notifier called %d times, want exactly 1", len(notifier.completions))
	}
	if notifier.completions[0].resultJSON != `{"finalCount":50}` {
		t.Errorf("Result = %q, want %q", notifier.completions[0].resultJSON, `{"finalCount":50}`)
	}
}
