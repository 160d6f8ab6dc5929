package http

import (
	"context"
	"net/http"

	"credhealth/internal/adapter/middleware"
	"credhealth/internal/domain/loan"
	"credhealth/internal/domain/user"
	ucLoan "credhealth/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanHandler struct {
	uc     *ucLoan.Usecase
	logger *zap.Logger
}

func NewLoanHandler(uc *ucLoan.Usecase, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, logger: nopIfNil(logger)}
}

type requestLoanReq struct {
	HospitalID string          `json:"hospital_id" validate:"required,ulid"`
	Amount     decimal.Decimal `json:"amount"      validate:"gt=0,dec2"`
	Collateral decimal.Decimal `json:"collateral"  validate:"gte=0,dec2"`
}

func (h *LoanHandler) RequestLoan(c echo.Context) error {
	var req requestLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.Request(c.Request().Context(), middleware.CallerFrom(c), ucLoan.RequestLoanInput{
		HospitalID: req.HospitalID,
		Amount:     req.Amount,
		Collateral: req.Collateral,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, l)
}

type transitionFunc func(ctx context.Context, c user.Caller, loanID string) (*loan.Loan, error)

// transition serves the POST /loans/:loan_id/<trigger> routes. They carry no body.
func (h *LoanHandler) transition(fire transitionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		loanID := c.Param("loan_id")
		if loanID == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
		}
		l, err := fire(c.Request().Context(), middleware.CallerFrom(c), loanID)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, l)
	}
}

func (h *LoanHandler) ApproveLoan(c echo.Context) error  { return h.transition(h.uc.Approve)(c) }
func (h *LoanHandler) RejectLoan(c echo.Context) error   { return h.transition(h.uc.Reject)(c) }
func (h *LoanHandler) DisburseLoan(c echo.Context) error { return h.transition(h.uc.Disburse)(c) }
func (h *LoanHandler) RepayLoan(c echo.Context) error    { return h.transition(h.uc.Repay)(c) }

func (h *LoanHandler) GetLoan(c echo.Context) error {
	l, err := h.uc.Get(c.Request().Context(), middleware.CallerFrom(c), c.Param("loan_id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) MyLoans(c echo.Context) error {
	ls, err := h.uc.ListMine(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, nonNil(ls))
}

func (h *LoanHandler) HospitalLoans(c echo.Context) error {
	ls, err := h.uc.ListForHospital(c.Request().Context(), middleware.CallerFrom(c), c.Param("hospital_id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, nonNil(ls))
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
