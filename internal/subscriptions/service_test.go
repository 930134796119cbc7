package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newQueryService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return svc
}

func TestIsSubscribed(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	seed(t, repo, "org_active", "sub_1", fixedNow.Add(24*time.Hour).UnixMilli())
	seed(t, repo, "org_lapsed", "sub_2", fixedNow.Add(-time.Minute).UnixMilli())
	seed(t, repo, "org_boundary", "sub_3", fixedNow.UnixMilli())
	svc := newQueryService(t, repo)
	ctx := context.Background()

	cases := map[string]bool{
		"org_active":   true,
		"org_lapsed":   false,
		"org_boundary": false,
		"org_missing":  false,
		"":             false,
		"   ":          false,
	}
	for orgID, want := range cases {
		got, err := svc.IsSubscribed(ctx, orgID)
		require.NoError(t, err, orgID)
		require.Equal(t, want, got, "org %q", orgID)
	}
}

func TestIsSubscribedSkipsStoreForBlankOrg(t *testing.T) {
	repo := &failingRepo{err: errors.New("should not be called")}
	svc := newQueryService(t, repo)

	got, err := svc.IsSubscribed(context.Background(), "")
	require.NoError(t, err)
	require.False(t, got)
	require.Zero(t, repo.calls)
}

func TestIsSubscribedWrapsStoreFailure(t *testing.T) {
	svc := newQueryService(t, &failingRepo{err: errors.New("connection reset")})

	_, err := svc.IsSubscribed(context.Background(), "org_1")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestGet(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	seed(t, repo, "org_1", "sub_1", 42)
	svc := newQueryService(t, repo)
	ctx := context.Background()

	got, err := svc.Get(ctx, "org_1")
	require.NoError(t, err)
	require.Equal(t, int64(42), got.CurrentPeriodEndMS)

	got, err = svc.Get(ctx, "org_2")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = svc.Get(ctx, "")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

type failingRepo struct {
	Repository
	err   error
	calls int
}

func (f *failingRepo) FindByOrg(context.Context, string) (*models.OrgSubscription, error) {
	f.calls++
	return nil, f.err
}
