package service

import (
	"context"
	"fmt"

	"venpos/internal/apperr"
	"venpos/internal/config"
	"venpos/internal/infra"
	"venpos/internal/model"
	"venpos/internal/repository"

	"github.com/google/uuid"
)

// DocumentoService renders and delivers invoice documents.
type DocumentoService interface {
	// GenerarPDF writes the invoice PDF and returns its path on disk.
	GenerarPDF(ctx context.Context, facturaID uuid.UUID) (string, error)
	// EnviarPorCorreo renders the PDF and mails it as an attachment.
	EnviarPorCorreo(ctx context.Context, facturaID uuid.UUID, destinatario string) error
}

type documentoService struct {
	repo   repository.FacturaRepository
	mailer *infra.Mailer
	cfg    *config.Config
}

func NewDocumentoService(repo repository.FacturaRepository, mailer *infra.Mailer, cfg *config.Config) DocumentoService {
	return &documentoService{repo: repo, mailer: mailer, cfg: cfg}
}

func (s *documentoService) GenerarPDF(ctx context.Context, facturaID uuid.UUID) (string, error) {
	f, err := s.repo.FindByID(ctx, facturaID)
	if err != nil {
		return "", fmt.Errorf("factura %s: %w", facturaID, apperr.ErrNoEncontrado)
	}
	// Drafts are not documents yet.
	if f.Estado == model.FacturaBorrador {
		return "", apperr.Transicion(string(f.Estado), "generar PDF")
	}
	return infra.GenerarFacturaPDF(f, s.cfg.NombreNegocio, s.cfg.PDFStoragePath)
}

func (s *documentoService) EnviarPorCorreo(ctx context.Context, facturaID uuid.UUID, destinatario string) error {
	f, err := s.repo.FindByID(ctx, facturaID)
	if err != nil {
		return fmt.Errorf("factura %s: %w", facturaID, apperr.ErrNoEncontrado)
	}
	if f.Estado == model.FacturaBorrador {
		return apperr.Transicion(string(f.Estado), "enviar")
	}

	pdfPath, err := infra.GenerarFacturaPDF(f, s.cfg.NombreNegocio, s.cfg.PDFStoragePath)
	if err != nil {
		return err
	}

	numero := ""
	if f.Numero != nil {
		numero = *f.Numero
	}
	subject := fmt.Sprintf("Factura %s — %s", numero, s.cfg.NombreNegocio)
	body := fmt.Sprintf("Adjuntamos su factura %s por un total de %s %s.\n\nGracias por su compra.",
		numero, f.Moneda, f.Total.StringFixed(2))
	return s.mailer.EnviarFactura(destinatario, subject, body, pdfPath)
}
