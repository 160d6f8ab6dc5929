package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"credhealth/internal/domain/user"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	testKey    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testCaller = "01hzcaller0000000000000000"
)

// fixedCaller stands in for RequireAuth.
func fixedCaller(id string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id != "" {
				WithCaller(c, user.Caller{UserID: id, Role: user.RolePatient})
			}
			return next(c)
		}
	}
}

// helper: new Echo with the middleware and a simple route
func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	return setupEchoAs(testCaller, rdb, ttl, handler)
}

func setupEchoAs(callerID string, rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(fixedCaller(callerID), Idempotency(rdb, ttl, nil))
	e.POST("/loans", handler)
	e.GET("/loans", handler) // for non-mutating bypass test
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderIdempotencyKey: testKey,
		HeaderRequestAt:      time.Now().UTC().Format(time.RFC3339),
	}
}

// countingHandler returns 201 {"n":<call count>} so replays are distinguishable from re-runs.
func countingHandler(calls *int32) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := atomic.AddInt32(calls, 1)
		return c.JSON(http.StatusCreated, map[string]any{"n": n})
	}
}

func Test_BypassOnGET(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	rec := doReq(t, e, http.MethodGet, "/loans", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_PassThroughWithoutKey(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, time.Minute, countingHandler(&calls))

	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, "/loans", mkJSONBody(t, map[string]int{"x": 1}), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d", rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler should run for every keyless request, ran %d times", calls)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("keyless requests must not touch redis: %v", mr.Keys())
	}
}

func Test_ValidationFailures(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(rdb, 30*time.Second, countingHandler(new(int32)))
	now := time.Now().UTC()

	cases := map[string]map[string]string{
		"invalid key": {
			HeaderIdempotencyKey: "NOT-VALID",
			HeaderRequestAt:      now.Format(time.RFC3339),
		},
		"missing request-at": {
			HeaderIdempotencyKey: testKey,
		},
		"bad request-at": {
			HeaderIdempotencyKey: testKey,
			HeaderRequestAt:      "not-a-time",
		},
		"skewed past": {
			HeaderIdempotencyKey: testKey,
			HeaderRequestAt:      now.Add(-maxClockSkew - time.Minute).Format(time.RFC3339),
		},
		"skewed future": {
			HeaderIdempotencyKey: testKey,
			HeaderRequestAt:      now.Add(maxClockSkew + time.Minute).Format(time.RFC3339),
		},
	}
	for name, h := range cases {
		rec := doReq(t, e, http.MethodPost, "/loans", mkJSONBody(t, map[string]int{"x": 1}), h)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s => want 400, got %d", name, rec.Code)
		}
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&calls))
	h := validHeaders()

	rec1 := doReq(t, e, http.MethodPost, "/loans", mkJSONBody(t, map[string]any{"amount": "1000"}), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request => want 201, got %d, body: %s", rec1.Code, rec1.Body.String())
	}

	rec2 := doReq(t, e, http.MethodPost, "/loans", mkJSONBody(t, map[string]any{"amount": "1000"}), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay => want 201, got %d, body: %s", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay header missing")
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func Test_KeysAreScopedPerCaller(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	var calls int32
	h := validHeaders()

	a := setupEchoAs("01hzcallera000000000000000", rdb, time.Minute, countingHandler(&calls))
	b := setupEchoAs("01hzcallerb000000000000000", rdb, time.Minute, countingHandler(&calls))

	doReq(t, a, http.MethodPost, "/loans", mkJSONBody(t, map[string]int{"x": 1}), h)
	rec := doReq(t, b, http.MethodPost, "/loans", mkJSONBody(t, map[string]int{"x": 1}), h)
	if rec.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("same key from another caller must run: code=%d calls=%d", rec.Code, calls)
	}
}

func Test_ServerErrorsAreNotRemembered(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "settlement failed"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "DISBURSED"})
	})
	h := validHeaders()

	rec := doReq(t, e, http.MethodPost, "/loans", mkJSONBody(t, map[string]int{"x": 1}), h)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("first => want 502, got %d", rec.Code)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("lock should be released after 5xx: %v", mr.Keys())
	}
	rec = doReq(t, e, http.MethodPost, "/loans", mkJSONBody(t, map[string]int{"x": 1}), h)
	if rec.Code != http.StatusOK || calls != 2 {
		t.Fatalf("retry => want 200 after rerun, got %d (calls=%d)", rec.Code, calls)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(rdb, 2*time.Minute, countingHandler(new(int32)))

	body := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, "/loans", testCaller, testKey)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash(body),
		Key:         testKey,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if ok, err := provisionalSet(context.Background(), rdb, key, entry); err != nil || !ok {
		t.Fatalf("seed provisional failed, ok=%v err=%v", ok, err)
	}

	rec := doReq(t, e, http.MethodPost, "/loans", bytes.NewReader(body), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func Test_Conflict_When_SameKey_DifferentBody(t *testing.T) {
	_, rdb := newMiniredisClient(t)
	e := setupEcho(rdb, 2*time.Minute, countingHandler(new(int32)))

	key := buildKey(http.MethodPost, "/loans", testCaller, testKey)
	final := idempEntry{
		Code:        http.StatusCreated,
		Body:        []byte(`{"n":1}`),
		BodySHA256:  bodyHash([]byte(`{"x":1}`)),
		Key:         testKey,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := saveFinal(context.Background(), rdb, key, final, 5*time.Minute); err != nil {
		t.Fatalf("seed final failed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, "/loans", bytes.NewReader([]byte(`{"x":2}`)), validHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body same key => want 409, got %d", rec.Code)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	// Closed address → SetNX error
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	e := setupEcho(rdb, time.Minute, countingHandler(new(int32)))

	rec := doReq(t, e, http.MethodPost, "/loans", bytes.NewReader([]byte(`{}`)), validHeaders())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
}
