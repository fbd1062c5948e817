package templates

import (
	"io"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/templates")
	g.GET("", h.list)
	g.GET("/default", h.defaults)
	g.GET("/custom", h.custom)
	g.GET("/:id", h.get)

	a := g.Group("", authMW)
	a.GET("/status", h.status)
	a.POST("", h.upload)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) defaults(c *gin.Context) {
	items, err := h.svc.Defaults(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) custom(c *gin.Context) {
	items, err := h.svc.Custom(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	row, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, row)
}

func (h *Handler) status(c *gin.Context) {
	response.OK(c, h.svc.Status())
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	u := Upload{
		Name:        c.PostForm("name"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	// size and type are checked before the body is read
	if err := h.svc.Check(u); err != nil {
		writeError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer f.Close()
	u.Data, err = io.ReadAll(io.LimitReader(f, h.svc.MaxBytes()+1))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	row, err := h.svc.Upload(c.Request.Context(), u)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, row)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		response.TooLarge(c, err.Error())
	case errors.Is(err, ErrUnsupportedType):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, ErrDefaultProtected):
		response.Forbidden(c, err.Error())
	default:
		response.Error(c, err)
	}
}
