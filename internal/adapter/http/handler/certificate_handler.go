package handler

import (
	"time"

	"edu-ledger/internal/adapter/http/dto"
	"edu-ledger/internal/adapter/http/middleware"
	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"
	"edu-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CertificateHandler handles certificate issuance and verification.
type CertificateHandler struct {
	certs ports.CertificateService
}

func NewCertificateHandler(certs ports.CertificateService) *CertificateHandler {
	return &CertificateHandler{certs: certs}
}

// Issue handles POST /api/v1/certificates.
func (h *CertificateHandler) Issue(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	var date time.Time
	if req.Date != "" {
		// Format already checked by the binding.
		date, _ = time.Parse(time.DateOnly, req.Date)
	}
	signatories := make([]domain.Signatory, 0, len(req.Signatories))
	for _, s := range req.Signatories {
		signatories = append(signatories, domain.Signatory{Name: s.Name, Title: s.Title})
	}

	cert, err := h.certs.Issue(c.Request.Context(), ports.IssueCertificateRequest{
		OwnerID:        userID,
		Name:           req.Name,
		Issuer:         req.Issuer,
		Description:    req.Description,
		Date:           date,
		StudentName:    req.StudentName,
		StudentEmail:   req.StudentEmail,
		Grade:          req.Grade,
		Badge:          req.Badge,
		Color:          req.Color,
		Signatories:    signatories,
		Duration:       req.Duration,
		Hours:          req.Hours,
		Specialization: req.Specialization,
		IdempotencyKey: c.GetHeader(dto.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, cert.CertificateID)
	response.Created(c, cert)
}

// List handles GET /api/v1/certificates.
func (h *CertificateHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	certs, err := h.certs.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewListResponse(certs))
}

// Verify handles GET /api/v1/certificates/:certificate_id/verify. It is
// public so third parties can check a certificate they were shown.
func (h *CertificateHandler) Verify(c *gin.Context) {
	result, err := h.certs.Verify(c.Request.Context(), c.Param("certificate_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
