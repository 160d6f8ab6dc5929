package http

import (
	"net/http"

	"credhealth/internal/adapter/middleware"
	ucHospital "credhealth/internal/usecase/hospital"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HospitalHandler struct {
	uc     *ucHospital.Usecase
	logger *zap.Logger
}

func NewHospitalHandler(uc *ucHospital.Usecase, logger *zap.Logger) *HospitalHandler {
	return &HospitalHandler{uc: uc, logger: nopIfNil(logger)}
}

type addHospitalReq struct {
	Name          string `json:"name"           validate:"required,max=255"`
	Address       string `json:"address"        validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required,max=64"`
}

func (h *HospitalHandler) AddHospital(c echo.Context) error {
	var req addHospitalReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	out, err := h.uc.Add(c.Request().Context(), middleware.CallerFrom(c), ucHospital.AddHospitalInput(req))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *HospitalHandler) GetHospital(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), middleware.CallerFrom(c), c.Param("hospital_id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *HospitalHandler) ListHospitals(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), middleware.CallerFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, nonNil(out))
}
