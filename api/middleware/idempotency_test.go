package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) Replace(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; !ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func sessionRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), "user_1"))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), sessionRequest("", `{"org_id":"org_1"}`))
	}

	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, sessionRequest("abc", `{"org_id":"org_1"}`))
	require.Equal(t, http.StatusAccepted, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, sessionRequest("abc", `{"org_id":"org_1"}`))
	assert.Equal(t, http.StatusAccepted, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), sessionRequest("xyz", `{"org_id":"org_1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("xyz", `{"org_id":"org_2"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	key := store.IdempotencyKey("user_1|POST|/api/v1/billing/checkout", "busy")
	store.data[key] = pendingMarker

	var calls int
	handler := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest("busy", `{"org_id":"org_1"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), sessionRequest("k1", `{"org_id":"org_1"}`))
	assert.Empty(t, store.data)

	handler.ServeHTTP(httptest.NewRecorder(), sessionRequest("k1", `{"org_id":"org_1"}`))
	assert.Equal(t, 2, calls)
}

func TestIdempotencyHandlerSeesOriginalBody(t *testing.T) {
	store := newFakeStore()
	var seen string
	handler := Idempotency(store, time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			OrgID string `json:"org_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		seen = payload.OrgID
	}))

	handler.ServeHTTP(httptest.NewRecorder(), sessionRequest("body", `{"org_id":"org_7"}`))
	assert.Equal(t, "org_7", seen)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	handler := Idempotency(newFakeStore(), time.Hour, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest(strings.Repeat("k", maxIdempotencyKey+1), `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
