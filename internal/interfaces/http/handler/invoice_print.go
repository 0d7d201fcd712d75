package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	printingapp "github.com/salonsuite/backend/internal/application/printing"
)

// InvoicePrintHandler handles invoice PDF download endpoints
type InvoicePrintHandler struct {
	BaseHandler
	service *printingapp.InvoicePrintService
}

// NewInvoicePrintHandler creates a new InvoicePrintHandler
func NewInvoicePrintHandler(service *printingapp.InvoicePrintService) *InvoicePrintHandler {
	return &InvoicePrintHandler{
		service: service,
	}
}

// Download renders the invoice as a PDF and streams it to the client
func (h *InvoicePrintHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	pdf, err := h.service.RenderInvoicePDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+pdf.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf.Data)
}
