package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-enrich/internal/identity"
	"github.com/sells-group/company-enrich/internal/model"
)

type fakeSession struct {
	results    map[string][]string
	err        error
	queries    []string
	consentErr error
	consented  bool
	closed     bool
}

func (f *fakeSession) Search(_ context.Context, query string) ([]string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSession) DismissConsent(_ context.Context) error {
	f.consented = true
	return f.consentErr
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeSearcher struct {
	session *fakeSession
	err     error
}

func (f *fakeSearcher) Open(_ context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newMatcher() *identity.Matcher {
	return identity.NewMatcher("", nil)
}

func TestFinder_Query(t *testing.T) {
	f := NewFinder(&fakeSession{}, newMatcher())
	assert.Equal(t, `"acme logistics" Singapore site:.sg`, f.Query("Acme Logistics Pte. Ltd."))

	f = NewFinder(&fakeSession{}, identity.NewMatcher(".my", nil), WithCountry("Malaysia"))
	assert.Equal(t, `"orchid trading" Malaysia site:.my`, f.Query("Orchid Trading"))
}

func TestFinder_FirstAcceptedWins(t *testing.T) {
	session := &fakeSession{results: map[string][]string{
		`"acme logistics" Singapore site:.sg`: {
			"https://www.linkedin.com/company/acme-logistics",
			"https://acme.com/about",
			"https://www.acme-logistics.com.sg/",
			"https://acme.sg/contact",
		},
	}}

	var delays int
	f := NewFinder(session, newMatcher(), WithDelay(func(ctx context.Context) error {
		delays++
		return nil
	}))

	website, outcome := f.Find(context.Background(), "Acme Logistics Pte Ltd")
	assert.Equal(t, model.OutcomeFound, outcome.Status)
	assert.Equal(t, "https://www.acme-logistics.com.sg/", website)
	assert.Equal(t, 1, delays)
}

func TestFinder_NoMatchIsAbsent(t *testing.T) {
	session := &fakeSession{results: map[string][]string{
		`"orchid" Singapore site:.sg`: {"https://www.sgpbusiness.com/company/orchid"},
	}}
	f := NewFinder(session, newMatcher())

	website, outcome := f.Find(context.Background(), "Orchid")
	assert.Empty(t, website)
	assert.Equal(t, model.OutcomeAbsent, outcome.Status)
	assert.NoError(t, outcome.Err)
}

func TestFinder_SearchErrorIsFailed(t *testing.T) {
	f := NewFinder(&fakeSession{err: errors.New("blocked")}, newMatcher())

	website, outcome := f.Find(context.Background(), "Acme")
	assert.Empty(t, website)
	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "blocked")
}

func TestFinder_DelayAppliedAfterFailedQuery(t *testing.T) {
	var delays int
	f := NewFinder(&fakeSession{err: errors.New("timeout")}, newMatcher(),
		WithDelay(func(context.Context) error { delays++; return nil }))

	_, outcome := f.Find(context.Background(), "Acme")
	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	assert.Equal(t, 1, delays)
}

func TestNewStage_OpensSessionAndDismissesConsent(t *testing.T) {
	session := &fakeSession{consentErr: errors.New("no banner")}
	stage, err := NewStage(context.Background(), &fakeSearcher{session: session}, newMatcher())
	require.NoError(t, err)
	assert.True(t, session.consented)

	require.NoError(t, stage.Close())
	assert.True(t, session.closed)
}

func TestNewStage_OpenError(t *testing.T) {
	_, err := NewStage(context.Background(), &fakeSearcher{err: errors.New("no browser")}, newMatcher())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery: open search session")
}

func TestStage_Done(t *testing.T) {
	stage, err := NewStage(context.Background(), &fakeSearcher{session: &fakeSession{}}, newMatcher())
	require.NoError(t, err)

	tests := []struct {
		name string
		rec  model.CompanyRecord
		want bool
	}{
		{"blank name", model.CompanyRecord{EntityName: "  "}, true},
		{"website present", model.CompanyRecord{EntityName: "Acme", Website: "https://acme.sg"}, true},
		{"found", model.CompanyRecord{EntityName: "Acme", DiscoveryStatus: model.DiscoveryFound}, true},
		{"not found", model.CompanyRecord{EntityName: "Acme", DiscoveryStatus: model.DiscoveryNotFound}, true},
		{"errored earlier", model.CompanyRecord{EntityName: "Acme", DiscoveryStatus: model.DiscoveryError}, false},
		{"fresh", model.CompanyRecord{EntityName: "Acme"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stage.Done(&tt.rec))
		})
	}
}

func TestStage_Process(t *testing.T) {
	session := &fakeSession{results: map[string][]string{
		`"acme" Singapore site:.sg`: {"https://acme.com.sg/about"},
	}}
	stage, err := NewStage(context.Background(), &fakeSearcher{session: session}, newMatcher())
	require.NoError(t, err)

	found := model.CompanyRecord{EntityName: "Acme Pte Ltd"}
	outcome, err := stage.Process(context.Background(), &found)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFound, outcome.Status)
	assert.Equal(t, "https://acme.com.sg/about", found.Website)
	assert.Equal(t, model.DiscoveryFound, found.DiscoveryStatus)

	missing := model.CompanyRecord{EntityName: "Orchid Trading"}
	outcome, err = stage.Process(context.Background(), &missing)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAbsent, outcome.Status)
	assert.Empty(t, missing.Website)
	assert.Equal(t, model.DiscoveryNotFound, missing.DiscoveryStatus)
}

func TestStage_ProcessSearchFailure(t *testing.T) {
	stage, err := NewStage(context.Background(),
		&fakeSearcher{session: &fakeSession{err: errors.New("rate limited")}}, newMatcher())
	require.NoError(t, err)

	rec := model.CompanyRecord{EntityName: "Acme"}
	outcome, err := stage.Process(context.Background(), &rec)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFailed, outcome.Status)
	assert.Empty(t, rec.Website)
	assert.Equal(t, model.DiscoveryError, rec.DiscoveryStatus)
	assert.False(t, stage.Done(&rec))
}

func TestStage_ProcessCancelled(t *testing.T) {
	stage, err := NewStage(context.Background(), &fakeSearcher{session: &fakeSession{}}, newMatcher(),
		WithDelay(NoDelay))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := model.CompanyRecord{EntityName: "Acme"}
	_, err = stage.Process(ctx, &rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.DiscoveryStatus)
}
