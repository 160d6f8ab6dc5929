package http

import (
	"net/http"

	"credhealth/internal/adapter/middleware"
	"credhealth/internal/domain/user"
	ucUser "credhealth/internal/usecase/user"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserHandler struct {
	uc     *ucUser.Usecase
	logger *zap.Logger
}

func NewUserHandler(uc *ucUser.Usecase, logger *zap.Logger) *UserHandler {
	return &UserHandler{uc: uc, logger: nopIfNil(logger)}
}

type registerReq struct {
	Name          string  `json:"name"           validate:"required,max=255"`
	Email         string  `json:"email"          validate:"required,email"`
	Password      string  `json:"password"       validate:"required,min=8,max=72"`
	Role          string  `json:"role"           validate:"omitempty,oneof=PATIENT HOSPITAL_ADMIN"`
	WalletAddress *string `json:"wallet_address" validate:"omitempty,max=64"`
}

// Register is public; it does not log the caller in.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	out, err := h.uc.Register(c.Request().Context(), ucUser.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Role:          user.Role(req.Role),
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *UserHandler) Me(c echo.Context) error {
	out, err := h.uc.Me(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), middleware.CallerFrom(c), c.Param("user_id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, out)
}

type updateMeReq struct {
	Name          *string  `json:"name"           validate:"omitempty,max=255"`
	WalletAddress *string  `json:"wallet_address" validate:"omitempty,max=64"`
	CreditScore   *float64 `json:"credit_score"   validate:"omitempty,gte=0"`
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req updateMeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	out, err := h.uc.Update(c.Request().Context(), middleware.CallerFrom(c), ucUser.UpdateInput(req))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, out)
}
