package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	domainHospital "credhealth/internal/domain/hospital"
	domainLoan "credhealth/internal/domain/loan"
	"credhealth/internal/domain/uow"
	domainUser "credhealth/internal/domain/user"
	"credhealth/internal/relay"
	"credhealth/internal/settlement"
	"credhealth/internal/testutil/hospitalmock"
	"credhealth/internal/testutil/loanmock"
	"credhealth/internal/testutil/uowmock"
	"credhealth/internal/testutil/usermock"
	ucHospital "credhealth/internal/usecase/hospital"
	ucLoan "credhealth/internal/usecase/loan"
	ucUser "credhealth/internal/usecase/user"
	"credhealth/pkg/id"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var (
	patient  = domainUser.Caller{UserID: id.New(), Role: domainUser.RolePatient}
	admin    = domainUser.Caller{UserID: id.New(), Role: domainUser.RoleHospitalAdmin}
	outsider = domainUser.Caller{UserID: id.New(), Role: domainUser.RoleHospitalAdmin}
)

// bearer tokens understood by stubTokens
const (
	tokPatient  = "patient-token"
	tokAdmin    = "admin-token"
	tokOutsider = "outsider-token"
)

type stubTokens map[string]domainUser.Caller

func (s stubTokens) Parse(token string) (domainUser.Caller, error) {
	c, ok := s[token]
	if !ok {
		return domainUser.Caller{}, errors.New("unknown token")
	}
	return c, nil
}

type stubSettler struct {
	err error
}

func (s *stubSettler) Disburse(context.Context, settlement.Request) (settlement.Receipt, error) {
	if s.err != nil {
		return settlement.Receipt{}, s.err
	}
	return settlement.Receipt{TxHash: "0xabc"}, nil
}

func (s *stubSettler) Repay(context.Context, settlement.Request) (settlement.Receipt, error) {
	if s.err != nil {
		return settlement.Receipt{}, s.err
	}
	return settlement.Receipt{TxHash: "0xdef"}, nil
}

// memStore backs the repository mocks with maps so handlers run the real usecases.
type memStore struct {
	mu        sync.Mutex
	loans     map[string]domainLoan.Loan
	hospitals map[string]domainHospital.Hospital
	users     map[string]domainUser.User
}

func (s *memStore) loanRepo() *loanmock.Repo {
	return &loanmock.Repo{
		CreateFn: func(_ context.Context, l *domainLoan.Loan) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.loans[l.LoanID] = *l
			return nil
		},
		GetByLoanIDFn: func(_ context.Context, loanID string) (*domainLoan.Loan, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			l, ok := s.loans[loanID]
			if !ok {
				return nil, domainLoan.ErrNotFound
			}
			return &l, nil
		},
		ListByPatientFn: func(_ context.Context, patientID string) ([]domainLoan.Loan, error) {
			return s.filterLoans(func(l domainLoan.Loan) bool { return l.PatientID == patientID }), nil
		},
		ListByHospitalFn: func(_ context.Context, hospitalID string) ([]domainLoan.Loan, error) {
			return s.filterLoans(func(l domainLoan.Loan) bool { return l.HospitalID == hospitalID }), nil
		},
		UpdateStateIfFn: func(_ context.Context, l *domainLoan.Loan, from domainLoan.State) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			cur, ok := s.loans[l.LoanID]
			if !ok || cur.Status != from {
				return domainLoan.ErrStaleState
			}
			s.loans[l.LoanID] = *l
			return nil
		},
	}
}

func (s *memStore) filterLoans(keep func(domainLoan.Loan) bool) []domainLoan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domainLoan.Loan
	for _, l := range s.loans {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanID > out[j].LoanID })
	return out
}

func (s *memStore) hospitalRepo() *hospitalmock.Repo {
	return &hospitalmock.Repo{
		CreateFn: func(_ context.Context, h *domainHospital.Hospital) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, other := range s.hospitals {
				if other.WalletAddress == h.WalletAddress {
					return domainHospital.ErrWalletTaken
				}
			}
			s.hospitals[h.HospitalID] = *h
			return nil
		},
		GetByHospitalIDFn: func(_ context.Context, hospitalID string) (*domainHospital.Hospital, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			h, ok := s.hospitals[hospitalID]
			if !ok {
				return nil, domainHospital.ErrNotFound
			}
			return &h, nil
		},
		GetByWalletFn: func(_ context.Context, wallet string) (*domainHospital.Hospital, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, h := range s.hospitals {
				if h.WalletAddress == wallet {
					return &h, nil
				}
			}
			return nil, domainHospital.ErrNotFound
		},
		ListFn: func(context.Context) ([]domainHospital.Hospital, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			out := make([]domainHospital.Hospital, 0, len(s.hospitals))
			for _, h := range s.hospitals {
				out = append(out, h)
			}
			sort.Slice(out, func(i, j int) bool { return out[i].HospitalID < out[j].HospitalID })
			return out, nil
		},
		RecordDisbursementFn: func(_ context.Context, hospitalID string, amount decimal.Decimal) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			h, ok := s.hospitals[hospitalID]
			if !ok {
				return domainHospital.ErrNotFound
			}
			h.TotalLoansProcessed++
			h.TotalAmountDisbursed = h.TotalAmountDisbursed.Add(amount)
			s.hospitals[hospitalID] = h
			return nil
		},
	}
}

func (s *memStore) userRepo() *usermock.Repo {
	return &usermock.Repo{
		CreateFn: func(_ context.Context, u *domainUser.User) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.users[u.UserID] = *u
			return nil
		},
		GetByUserIDFn: func(_ context.Context, userID string) (*domainUser.User, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			u, ok := s.users[userID]
			if !ok {
				return nil, domainUser.ErrNotFound
			}
			return &u, nil
		},
		GetByEmailFn: func(_ context.Context, email string) (*domainUser.User, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, u := range s.users {
				if u.Email == email {
					return &u, nil
				}
			}
			return nil, domainUser.ErrNotFound
		},
		SaveFn: func(_ context.Context, u *domainUser.User) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.users[u.UserID] = *u
			return nil
		},
	}
}

type testServer struct {
	e       *echo.Echo
	store   *memStore
	relay   *relay.Relay
	settler *stubSettler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := &memStore{
		loans:     map[string]domainLoan.Loan{},
		hospitals: map[string]domainHospital.Hospital{},
		users:     map[string]domainUser.User{},
	}
	loans, hospitals, users := st.loanRepo(), st.hospitalRepo(), st.userRepo()
	tx := uowmock.Passthrough(uow.Repos{Loans: loans, Hospitals: hospitals})
	rl := relay.New()
	settler := &stubSettler{}

	loanUC := ucLoan.NewUsecase(loans, hospitals, tx, ucLoan.WithSettler(settler), ucLoan.WithPublisher(rl))
	e := NewRouter(RouterConfig{
		Health:    NewHandler(nil),
		Loans:     NewLoanHandler(loanUC, nil),
		Hospitals: NewHospitalHandler(ucHospital.NewUsecase(hospitals, nil), nil),
		Users:     NewUserHandler(ucUser.NewUsecase(users, nil), nil),
		Stream:    NewStreamHandler(rl, 0, nil),
		Tokens: stubTokens{
			tokPatient:  patient,
			tokAdmin:    admin,
			tokOutsider: outsider,
		},
	})
	return &testServer{e: e, store: st, relay: rl, settler: settler}
}

// seedHospital stores a hospital administered by admin.
func (s *testServer) seedHospital(t *testing.T) string {
	t.Helper()
	hid := id.New()
	s.store.mu.Lock()
	s.store.hospitals[hid] = domainHospital.Hospital{
		HospitalID:    hid,
		Name:          "St. Mary",
		Address:       "1 Main St",
		WalletAddress: "0x" + hid,
		Admins:        []domainHospital.Admin{{HospitalID: hid, UserID: admin.UserID}},
	}
	s.store.mu.Unlock()
	return hid
}

func mustJSON(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = mustJSON(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doRaw(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return out
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, code, rec.Body.String())
	}
}
