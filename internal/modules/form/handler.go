package form

import (
	"github.com/formvoice/core/internal/middleware"
	"github.com/formvoice/core/internal/pkg/pagination"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts form, field and submission routes. submitMW guards
// the public submission endpoint.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, submitMW ...gin.HandlerFunc) {
	f := rg.Group("/forms")
	f.GET("/active", h.listActive)
	f.GET("/:id", h.get)
	f.GET("/:id/fields", h.fields)
	f.POST("/:id/submissions", append(submitMW, h.submit)...)

	a := rg.Group("", authMW)
	a.GET("/forms", h.list)
	a.GET("/forms/status", h.status)
	a.POST("/forms", h.create)
	a.PUT("/forms/:id", h.update)
	a.DELETE("/forms/:id", h.delete)
	a.POST("/forms/:id/fields", h.addField)
	a.PUT("/fields/:id", h.updateField)
	a.DELETE("/fields/:id", h.deleteField)
	a.GET("/forms/:id/submissions", h.listSubmissions)
	a.GET("/submissions/:id", h.getSubmission)
	a.GET("/submissions/:id/prefill", h.prefill)
	a.PUT("/submissions/:id", h.updateSubmission)
}

func (h *Handler) list(c *gin.Context) {
	forms, err := h.svc.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]formResponse, len(forms))
	for i, f := range forms {
		out[i] = toResponse(f)
	}
	response.OK(c, out)
}

func (h *Handler) listActive(c *gin.Context) {
	forms, err := h.svc.List(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]formResponse, len(forms))
	for i, f := range forms {
		out[i] = toResponse(f)
	}
	response.OK(c, out)
}

func (h *Handler) status(c *gin.Context) {
	response.OK(c, h.svc.Status())
}

func (h *Handler) get(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !f.IsActive && !middleware.IsAuthenticated(c) {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(f))
}

func (h *Handler) fields(c *gin.Context) {
	f, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, f.Fields)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateFormDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.svc.Create(c.Request.Context(), dto, middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toResponse(f))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateFormDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.svc.Update(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toResponse(f))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) addField(c *gin.Context) {
	var dto FieldDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.svc.AddField(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, f)
}

func (h *Handler) updateField(c *gin.Context) {
	var dto FieldDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.svc.UpdateField(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, f)
}

func (h *Handler) deleteField(c *gin.Context) {
	if err := h.svc.DeleteField(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) submit(c *gin.Context) {
	var dto SubmitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	row, err := h.svc.Submit(c.Request.Context(), c.Param("id"), dto.FormData, middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

func (h *Handler) listSubmissions(c *gin.Context) {
	items, pag, err := h.svc.ListSubmissions(c.Request.Context(), c.Param("id"), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) getSubmission(c *gin.Context) {
	row, err := h.svc.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, row)
}

func (h *Handler) prefill(c *gin.Context) {
	p, err := h.svc.Prefill(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) updateSubmission(c *gin.Context) {
	var dto SubmitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	row, err := h.svc.UpdateSubmission(c.Request.Context(), c.Param("id"), dto.FormData)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, row)
}
