package http

import (
	"bufio"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"credhealth/internal/relay"
)

func openStream(t *testing.T, ctx context.Context, srv *httptest.Server, query string) *bufio.Reader {
	t.Helper()
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, srv.URL+"/v1/loans/events"+query, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokPatient)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	if res.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type = %q", ct)
	}
	return bufio.NewReader(res.Body)
}

func waitSubscribers(t *testing.T, r *relay.Relay, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", r.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// nextData returns the payload of the next data: line.
func nextData(t *testing.T, rd *bufio.Reader) relay.Event {
	t.Helper()
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if raw, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: "); ok {
			var evt relay.Event
			if err := json.Unmarshal([]byte(raw), &evt); err != nil {
				t.Fatalf("bad event json: %v; raw=%s", err, raw)
			}
			return evt
		}
	}
}

func TestLoanEvents_StreamsTransitions(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rd := openStream(t, ctx, srv, "")
	waitSubscribers(t, s.relay, 1)

	l := requestLoan(t, s, s.seedHospital(t))
	wantStatus(t, s.do(t, stdhttp.MethodPost, "/v1/loans/"+l.LoanID+"/approve", tokAdmin, nil), stdhttp.StatusOK)

	first := nextData(t, rd)
	if first.Type != relay.EventLoanStatusChanged || first.Loan.LoanID != l.LoanID || first.Loan.Status != "REQUESTED" {
		t.Fatalf("first event = %+v", first)
	}
	second := nextData(t, rd)
	if second.Trigger != "approve" || second.Loan.Status != "APPROVED" {
		t.Fatalf("second event = %+v", second)
	}

	cancel()
	waitSubscribers(t, s.relay, 0)
}

func TestLoanEvents_FilterByLoan(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	hid := s.seedHospital(t)
	a := requestLoan(t, s, hid)
	b := requestLoan(t, s, hid)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rd := openStream(t, ctx, srv, "?loan_id="+b.LoanID)
	waitSubscribers(t, s.relay, 1)

	wantStatus(t, s.do(t, stdhttp.MethodPost, "/v1/loans/"+a.LoanID+"/reject", tokAdmin, nil), stdhttp.StatusOK)
	wantStatus(t, s.do(t, stdhttp.MethodPost, "/v1/loans/"+b.LoanID+"/approve", tokAdmin, nil), stdhttp.StatusOK)

	if evt := nextData(t, rd); evt.Loan.LoanID != b.LoanID {
		t.Fatalf("filtered stream delivered loan %s", evt.Loan.LoanID)
	}
}

func TestLoanEvents_RequiresAuth(t *testing.T) {
	s := newTestServer(t)
	wantStatus(t, s.do(t, stdhttp.MethodGet, "/v1/loans/events", "", nil), stdhttp.StatusUnauthorized)
}
