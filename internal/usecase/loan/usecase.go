package loan

import (
	"context"
	"fmt"
	"time"

	"credhealth/internal/domain/hospital"
	"credhealth/internal/domain/loan"
	"credhealth/internal/domain/uow"
	"credhealth/internal/domain/user"
	"credhealth/internal/relay"
	"credhealth/internal/settlement"
	"credhealth/pkg/id"

	"go.uber.org/zap"
)

// Settler runs the financial leg of disburse and repay.
type Settler interface {
	Disburse(ctx context.Context, req settlement.Request) (settlement.Receipt, error)
	Repay(ctx context.Context, req settlement.Request) (settlement.Receipt, error)
}

type Publisher interface {
	Publish(evt relay.Event)
}

type TransitionObserver interface {
	ObserveTransition(trigger string, err error)
}

type Usecase struct {
	loans     loan.Repository
	hospitals hospital.Repository
	uow       uow.UnitOfWork

	settler  Settler
	events   Publisher
	observer TransitionObserver
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Usecase)

func WithSettler(s Settler) Option { return func(u *Usecase) { u.settler = s } }

func WithPublisher(p Publisher) Option { return func(u *Usecase) { u.events = p } }

func WithObserver(o TransitionObserver) Option { return func(u *Usecase) { u.observer = o } }

func WithLogger(l *zap.Logger) Option { return func(u *Usecase) { u.logger = l } }

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

// NewUsecase wires the lifecycle manager. Without options it settles offline, publishes
// nowhere and logs nothing.
func NewUsecase(loans loan.Repository, hospitals hospital.Repository, tx uow.UnitOfWork, opts ...Option) *Usecase {
	u := &Usecase{
		loans:     loans,
		hospitals: hospitals,
		uow:       tx,
		settler:   settlement.Offline{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Request creates a REQUESTED loan for the caller against hospitalID.
func (u *Usecase) Request(ctx context.Context, c user.Caller, in RequestLoanInput) (l *loan.Loan, err error) {
	defer func() { u.observe(loan.TriggerRequest, err) }()

	if err := loan.Authorize(loan.TriggerRequest, c, nil, nil); err != nil {
		return nil, err
	}
	if in.HospitalID == "" {
		return nil, fmt.Errorf("hospital_id is required: %w", loan.ErrInvalidInput)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", loan.ErrInvalidInput)
	}
	if in.Collateral.IsNegative() {
		return nil, fmt.Errorf("collateral must not be negative: %w", loan.ErrInvalidInput)
	}
	if _, err := u.hospitals.GetByHospitalID(ctx, in.HospitalID); err != nil {
		return nil, err
	}

	now := u.now().UTC()
	l = &loan.Loan{
		LoanID:           id.New(),
		PatientID:        c.UserID,
		HospitalID:       in.HospitalID,
		Amount:           in.Amount,
		Collateral:       in.Collateral,
		RepaymentAmount:  loan.RepaymentFor(in.Amount),
		Status:           loan.StateRequested,
		RequestTimestamp: now,
		StateUpdatedAt:   now,
	}
	if err := u.loans.Create(ctx, l); err != nil {
		return nil, err
	}

	u.logger.Info("loan requested",
		zap.String("loan_id", l.LoanID),
		zap.String("patient_id", l.PatientID),
		zap.String("hospital_id", l.HospitalID),
		zap.String("amount", l.Amount.String()),
	)
	u.publish(loan.TriggerRequest, l, now)
	return l, nil
}

func (u *Usecase) Approve(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error) {
	return u.fire(ctx, c, loanID, loan.TriggerApprove)
}

func (u *Usecase) Reject(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error) {
	return u.fire(ctx, c, loanID, loan.TriggerReject)
}

func (u *Usecase) Disburse(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error) {
	return u.fire(ctx, c, loanID, loan.TriggerDisburse)
}

func (u *Usecase) Repay(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error) {
	return u.fire(ctx, c, loanID, loan.TriggerRepay)
}

// MarkDefaulted fires the default trigger. Only the system caller passes authorization; the
// deadline decision belongs to whoever calls it.
func (u *Usecase) MarkDefaulted(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error) {
	return u.fire(ctx, c, loanID, loan.TriggerDefault)
}

func (u *Usecase) Get(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error) {
	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	return u.loans.GetByLoanID(ctx, loanID)
}

// ListMine returns the caller's own loans.
func (u *Usecase) ListMine(ctx context.Context, c user.Caller) ([]loan.Loan, error) {
	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	return u.loans.ListByPatient(ctx, c.UserID)
}

// ListForHospital returns every loan of hospitalID. The caller must administer it.
func (u *Usecase) ListForHospital(ctx context.Context, c user.Caller, hospitalID string) ([]loan.Loan, error) {
	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	if c.Role != user.RoleHospitalAdmin {
		return nil, user.ErrUnauthorized
	}
	h, err := u.hospitals.GetByHospitalID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if err := loan.CanActForHospital(c, h); err != nil {
		return nil, err
	}
	return u.loans.ListByHospital(ctx, hospitalID)
}

// ListOverdue returns DISBURSED loans disbursed longer than term ago.
func (u *Usecase) ListOverdue(ctx context.Context, term time.Duration, limit int) ([]loan.Loan, error) {
	return u.loans.ListOverdue(ctx, u.now().UTC().Add(-term), limit)
}

func (u *Usecase) observe(t loan.Trigger, err error) {
	if u.observer != nil {
		u.observer.ObserveTransition(string(t), err)
	}
}

func (u *Usecase) publish(t loan.Trigger, l *loan.Loan, at time.Time) {
	if u.events == nil {
		return
	}
	u.events.Publish(relay.NewLoanStatusChanged(t, *l, at))
}
