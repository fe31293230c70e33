package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/certificate"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
)

type CertificateHandler struct {
	certificateUseCase certificate.CertificateUseCase
	jwtUtil            *auth.JWTUtil
}

func NewCertificateHandler(CertificateUseCase certificate.CertificateUseCase, JWTUtil *auth.JWTUtil) *CertificateHandler {
	return &CertificateHandler{CertificateUseCase, JWTUtil}
}

func (ch *CertificateHandler) HandleListCertificates(c echo.Context) (err error) {
	list, err := ch.certificateUseCase.ListByUser(c.Request().Context(), ch.jwtUtil.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (ch *CertificateHandler) HandleGetCertificate(c echo.Context) (err error) {
	cert, err := ch.certificateUseCase.Get(c.Request().Context(), ch.jwtUtil.UserID(c), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, cert)
}
