package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edu-ledger/internal/core/domain"
	"edu-ledger/internal/core/ports"
	"edu-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// certificateIDAttempts bounds the collision re-rolls of a new id.
const certificateIDAttempts = 5

// CertificateConfig holds the issuance parameters.
type CertificateConfig struct {
	Cost                     decimal.Decimal
	CompensateOnDebitFailure bool
	HashSecret               string
}

// CertificateServiceImpl implements ports.CertificateService.
type CertificateServiceImpl struct {
	certs   ports.CertificateRepository
	ledger  ports.LedgerService
	sigSvc  ports.SignatureService
	idem    idempotencyGuard
	metrics *Metrics
	cfg     CertificateConfig
	log     zerolog.Logger

	now    func() time.Time
	suffix func() string
}

func NewCertificateService(
	certs ports.CertificateRepository,
	ledger ports.LedgerService,
	sigSvc ports.SignatureService,
	idemCache ports.IdempotencyCache,
	metrics *Metrics,
	cfg CertificateConfig,
	log zerolog.Logger,
) *CertificateServiceImpl {
	return &CertificateServiceImpl{
		certs:   certs,
		ledger:  ledger,
		sigSvc:  sigSvc,
		idem:    idempotencyGuard{cache: idemCache, log: log},
		metrics: metrics,
		cfg:     cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		// rand.Text is base32: A-Z and 2-7.
		suffix: func() string { return rand.Text()[:8] },
	}
}

// Issue creates a certificate and charges its cost. The balance is checked
// before anything is written; when the charge itself fails the record is
// deleted again if compensation is enabled, and kept uncharged otherwise.
func (s *CertificateServiceImpl) Issue(ctx context.Context, req ports.IssueCertificateRequest) (*domain.Certificate, error) {
	if err := validateCertificateRequest(req); err != nil {
		return nil, err
	}

	var key string
	if req.IdempotencyKey != "" {
		key = domain.BuildIdempotencyKey(req.OwnerID, domain.FlowCertificate, req.IdempotencyKey)
	}
	cached, release, err := s.idem.begin(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()
	if cached != nil {
		return replay[domain.Certificate](cached)
	}

	balance := s.ledger.GetBalance(ctx, req.OwnerID)
	if balance.Balance.LessThan(s.cfg.Cost) {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := s.now()
	certID, err := s.allocateID(ctx, now)
	if err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = now
	}
	cert := &domain.Certificate{
		ID:             uuid.New(),
		CertificateID:  certID,
		OwnerID:        req.OwnerID,
		Name:           strings.TrimSpace(req.Name),
		Issuer:         strings.TrimSpace(req.Issuer),
		Description:    req.Description,
		Date:           date.UTC(),
		Verified:       true,
		StudentName:    strings.TrimSpace(req.StudentName),
		StudentEmail:   strings.TrimSpace(req.StudentEmail),
		Grade:          req.Grade,
		Badge:          req.Badge,
		Color:          req.Color,
		Signatories:    req.Signatories,
		Duration:       req.Duration,
		Hours:          req.Hours,
		Specialization: req.Specialization,
		CreatedAt:      now,
	}
	if cert.Signatories == nil {
		cert.Signatories = []domain.Signatory{}
	}
	cert.Hash = s.sigSvc.Sign(s.cfg.HashSecret, s.canonical(cert))

	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create certificate: %w", err))
	}

	_, tx, err := s.ledger.Debit(ctx, domain.Movement{
		UserID:      req.OwnerID,
		Amount:      s.cfg.Cost,
		Type:        domain.TransactionTypeCertificateCreation,
		Description: "Certificate: " + cert.Name,
		From:        req.OwnerID.String(),
	})
	if err != nil {
		s.compensate(ctx, cert, err)
		return nil, apperror.ErrCertificateIssuance(err)
	}

	s.idem.complete(ctx, key, cert)
	s.log.Info().
		Str("user_id", req.OwnerID.String()).
		Str("certificate_id", cert.CertificateID).
		Str("tx_id", tx.ID).
		Msg("certificate issued")
	return cert, nil
}

func validateCertificateRequest(req ports.IssueCertificateRequest) error {
	if req.OwnerID == uuid.Nil {
		return apperror.Validation("owner is required")
	}
	required := []struct{ field, value string }{
		{"name", req.Name},
		{"issuer", req.Issuer},
		{"student_name", req.StudentName},
		{"student_email", req.StudentEmail},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.Validation(r.field + " is required")
		}
	}
	if req.Hours < 0 {
		return apperror.Validation("hours must not be negative")
	}
	return nil
}

func (s *CertificateServiceImpl) compensate(ctx context.Context, cert *domain.Certificate, cause error) {
	logger := s.log.With().
		Str("user_id", cert.OwnerID.String()).
		Str("certificate_id", cert.CertificateID).
		Logger()

	if !s.cfg.CompensateOnDebitFailure {
		s.metrics.IncCompensation(domain.FlowCertificate, "skipped")
		logger.Warn().Err(cause).Msg("charge failed, certificate kept uncharged")
		return
	}
	if err := s.certs.Delete(context.WithoutCancel(ctx), cert.ID); err != nil {
		s.metrics.IncCompensation(domain.FlowCertificate, "failed")
		logger.Error().Err(err).AnErr("cause", cause).Msg("charge failed and certificate could not be deleted")
		return
	}
	s.metrics.IncCompensation(domain.FlowCertificate, "ok")
	logger.Warn().Err(cause).Msg("charge failed, certificate deleted")
}

// allocateID draws EDU-<year>-<suffix> ids until one is unused.
func (s *CertificateServiceImpl) allocateID(ctx context.Context, now time.Time) (string, error) {
	for range certificateIDAttempts {
		id := fmt.Sprintf("EDU-%d-%s", now.Year(), s.suffix())
		existing, err := s.certs.GetByCertificateID(ctx, id)
		if err != nil {
			return "", apperror.InternalError(fmt.Errorf("check certificate id: %w", err))
		}
		if existing == nil {
			return id, nil
		}
	}
	return "", apperror.ErrCertificateIDExhausted()
}

func (s *CertificateServiceImpl) canonical(c *domain.Certificate) string {
	return s.sigSvc.BuildCanonicalString(
		c.CertificateID,
		c.OwnerID.String(),
		c.Name,
		c.Issuer,
		c.StudentName,
		c.StudentEmail,
		c.Date.Format(time.DateOnly),
		c.Grade,
		strconv.Itoa(c.Hours),
		c.Specialization,
	)
}

// Verify recomputes the stored hash.
func (s *CertificateServiceImpl) Verify(ctx context.Context, certificateID string) (*domain.CertificateVerification, error) {
	cert, err := s.certs.GetByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get certificate: %w", err))
	}
	if cert == nil {
		return nil, apperror.ErrCertificateNotFound()
	}
	return &domain.CertificateVerification{
		CertificateID: cert.CertificateID,
		Valid:         s.sigSvc.Verify(s.cfg.HashSecret, s.canonical(cert), cert.Hash),
		Certificate:   cert,
	}, nil
}

func (s *CertificateServiceImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Certificate, error) {
	certs, err := s.certs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list certificates: %w", err))
	}
	if certs == nil {
		certs = []domain.Certificate{}
	}
	return certs, nil
}
