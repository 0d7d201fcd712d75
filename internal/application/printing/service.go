package printing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salonsuite/backend/internal/domain/billing"
	infra "github.com/salonsuite/backend/internal/infrastructure/printing"
)

// InvoicePDFResponse carries a rendered invoice document
type InvoicePDFResponse struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
}

// InvoicePrintService renders invoices as PDF documents
type InvoicePrintService struct {
	repo     billing.InvoiceRepository
	renderer infra.PDFRenderer
	logger   *zap.Logger
}

// NewInvoicePrintService creates a new InvoicePrintService
func NewInvoicePrintService(repo billing.InvoiceRepository, renderer infra.PDFRenderer, logger *zap.Logger) *InvoicePrintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoicePrintService{
		repo:     repo,
		renderer: renderer,
		logger:   logger,
	}
}

// RenderInvoicePDF renders the invoice identified by id as an A4 PDF
func (s *InvoicePrintService) RenderInvoicePDF(ctx context.Context, id uuid.UUID) (*InvoicePDFResponse, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	html, err := infra.RenderInvoiceHTML(invoice)
	if err != nil {
		return nil, err
	}

	result, err := s.renderer.Render(ctx, &infra.RenderRequest{
		HTML:  html,
		Title: "Facture " + invoice.Number,
	})
	if err != nil {
		s.logger.Error("invoice PDF rendering failed",
			zap.String("invoice", invoice.Number),
			zap.Error(err))
		return nil, fmt.Errorf("failed to render invoice %s: %w", invoice.Number, err)
	}

	s.logger.Info("invoice PDF rendered",
		zap.String("invoice", invoice.Number),
		zap.Int("bytes", len(result.PDFData)),
		zap.Duration("duration", result.RenderDuration))

	return &InvoicePDFResponse{
		Filename: invoice.Number + ".pdf",
		Data:     result.PDFData,
	}, nil
}
