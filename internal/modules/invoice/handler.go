package invoice

import (
	"net/http"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/pkg/pagination"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/invoices", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/status", h.status)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/render", h.render)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), models.InvoiceType(c.Query("type")), pagination.FromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) status(c *gin.Context) {
	response.OK(c, h.svc.Status())
}

func (h *Handler) get(c *gin.Context) {
	inv, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, inv)
}

func (h *Handler) create(c *gin.Context) {
	var dto InvoiceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inv, err := h.svc.Create(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, inv)
}

func (h *Handler) update(c *gin.Context) {
	var dto InvoiceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inv, err := h.svc.Update(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, inv)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) render(c *gin.Context) {
	out, err := h.svc.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Template-Id", out.TemplateID)
	c.Data(http.StatusOK, "text/html; charset=utf-8", out.Body)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownTemplate), errors.Is(err, ErrClientRendered), errors.Is(err, ErrBadTemplate):
		response.UnprocessableEntity(c, err.Error())
	default:
		response.Error(c, err)
	}
}
