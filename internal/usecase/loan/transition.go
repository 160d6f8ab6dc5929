package loan

import (
	"context"
	"errors"
	"fmt"

	"credhealth/internal/domain/hospital"
	"credhealth/internal/domain/loan"
	"credhealth/internal/domain/uow"
	"credhealth/internal/domain/user"
	"credhealth/internal/settlement"

	"go.uber.org/zap"
)

// fire runs one trigger against a stored loan: load, authorize, check the source state,
// run the settlement leg, then persist with a conditional update and publish.
func (u *Usecase) fire(ctx context.Context, c user.Caller, loanID string, t loan.Trigger) (l *loan.Loan, err error) {
	defer func() { u.observe(t, err) }()

	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	l, err = u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	var h *hospital.Hospital
	if actsForHospital(t) {
		h, err = u.hospitals.GetByHospitalID(ctx, l.HospitalID)
		if err != nil {
			return nil, err
		}
	}
	if err := loan.Authorize(t, c, l, h); err != nil {
		return nil, err
	}

	from := l.Status
	if _, err := loan.Next(t, from); err != nil {
		return nil, err
	}

	txHash, err := u.settle(ctx, t, l, h)
	if err != nil {
		u.logger.Warn("settlement leg failed",
			zap.String("loan_id", l.LoanID),
			zap.String("trigger", string(t)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", loan.ErrSettlementFailed, err)
	}

	at := u.now().UTC()
	next := *l
	if err := next.Apply(t, at, txHash); err != nil {
		return nil, err
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.UpdateStateIf(ctx, &next, from); err != nil {
			if errors.Is(err, loan.ErrStaleState) {
				return fmt.Errorf("%w: %w", loan.ErrInvalidStateTransition, err)
			}
			return err
		}
		if t == loan.TriggerDisburse {
			return r.Hospitals.RecordDisbursement(ctx, next.HospitalID, next.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("loan transitioned",
		zap.String("loan_id", next.LoanID),
		zap.String("trigger", string(t)),
		zap.String("from", string(from)),
		zap.String("to", string(next.Status)),
		zap.String("caller", c.UserID),
	)
	u.publish(t, &next, at)
	return &next, nil
}

func actsForHospital(t loan.Trigger) bool {
	return t == loan.TriggerApprove || t == loan.TriggerReject || t == loan.TriggerDisburse
}

// settle returns the tx hash of the leg, or "" for triggers without one.
func (u *Usecase) settle(ctx context.Context, t loan.Trigger, l *loan.Loan, h *hospital.Hospital) (string, error) {
	req := settlement.Request{
		LoanID:         l.LoanID,
		IdempotencyKey: string(t) + ":" + l.LoanID,
	}
	var (
		rc  settlement.Receipt
		err error
	)
	switch t {
	case loan.TriggerDisburse:
		req.WalletAddress = h.WalletAddress
		req.Amount = l.Amount
		rc, err = u.settler.Disburse(ctx, req)
	case loan.TriggerRepay:
		req.Amount = l.RepaymentAmount
		rc, err = u.settler.Repay(ctx, req)
	default:
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rc.TxHash, nil
}
