package builder

import (
	"strconv"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/middleware"
	"github.com/formvoice/core/internal/modules/formbuilder"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type metaDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type openDTO struct {
	Index *int `json:"index"`
}

type moveDTO struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to"   binding:"required"`
}

type fieldTypeInfo struct {
	Type formbuilder.FieldType `json:"type"`
	Icon string                `json:"icon"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/builder", authMW)
	g.GET("/field-types", h.fieldTypes)
	g.POST("", h.create)
	g.GET("/:sid", h.get)
	g.DELETE("/:sid", h.discard)
	g.POST("/:sid/load/:formId", h.load)
	g.PATCH("/:sid/meta", h.meta)
	g.POST("/:sid/editor/open", h.open)
	g.PATCH("/:sid/editor", h.edit)
	g.POST("/:sid/editor/options", h.addOption)
	g.DELETE("/:sid/editor/options/:i", h.removeOption)
	g.POST("/:sid/editor/rules", h.addRule)
	g.DELETE("/:sid/editor/rules/:i", h.removeRule)
	g.POST("/:sid/editor/commit", h.commit)
	g.POST("/:sid/editor/close", h.closeEditor)
	g.DELETE("/:sid/fields/:i", h.deleteField)
	g.POST("/:sid/fields/move", h.move)
	g.POST("/:sid/save", h.save)
	g.POST("/:sid/clear", h.clear)
}

func (h *Handler) fieldTypes(c *gin.Context) {
	types := formbuilder.FieldTypes()
	out := make([]fieldTypeInfo, len(types))
	for i, t := range types {
		out[i] = fieldTypeInfo{Type: t, Icon: t.Icon()}
	}
	response.OK(c, out)
}

func (h *Handler) create(c *gin.Context) {
	s, err := h.svc.Create(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, s)
}

func (h *Handler) get(c *gin.Context) {
	reply(c)(h.svc.Get(c.Request.Context(), c.Param("sid")))
}

func (h *Handler) discard(c *gin.Context) {
	if err := h.svc.Discard(c.Request.Context(), c.Param("sid")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) load(c *gin.Context) {
	reply(c)(h.svc.Load(c.Request.Context(), c.Param("sid"), c.Param("formId")))
}

func (h *Handler) meta(c *gin.Context) {
	var dto metaDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply(c)(h.svc.SetMeta(c.Request.Context(), c.Param("sid"), dto.Name, dto.Description, dto.IsActive))
}

func (h *Handler) open(c *gin.Context) {
	var dto openDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	reply(c)(h.svc.OpenEditor(c.Request.Context(), c.Param("sid"), dto.Index))
}

func (h *Handler) edit(c *gin.Context) {
	var dto CandidatePatch
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply(c)(h.svc.EditCandidate(c.Request.Context(), c.Param("sid"), dto))
}

func (h *Handler) addOption(c *gin.Context) {
	reply(c)(h.svc.AddOption(c.Request.Context(), c.Param("sid")))
}

func (h *Handler) removeOption(c *gin.Context) {
	i, ok := index(c)
	if !ok {
		return
	}
	reply(c)(h.svc.RemoveOption(c.Request.Context(), c.Param("sid"), i))
}

func (h *Handler) addRule(c *gin.Context) {
	reply(c)(h.svc.AddRule(c.Request.Context(), c.Param("sid")))
}

func (h *Handler) removeRule(c *gin.Context) {
	i, ok := index(c)
	if !ok {
		return
	}
	reply(c)(h.svc.RemoveRule(c.Request.Context(), c.Param("sid"), i))
}

func (h *Handler) commit(c *gin.Context) {
	reply(c)(h.svc.Commit(c.Request.Context(), c.Param("sid")))
}

func (h *Handler) closeEditor(c *gin.Context) {
	reply(c)(h.svc.CloseEditor(c.Request.Context(), c.Param("sid")))
}

func (h *Handler) deleteField(c *gin.Context) {
	i, ok := index(c)
	if !ok {
		return
	}
	reply(c)(h.svc.DeleteField(c.Request.Context(), c.Param("sid"), i))
}

func (h *Handler) move(c *gin.Context) {
	var dto moveDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply(c)(h.svc.MoveField(c.Request.Context(), c.Param("sid"), *dto.From, *dto.To))
}

func (h *Handler) save(c *gin.Context) {
	reply(c)(h.svc.Save(c.Request.Context(), c.Param("sid"), middleware.CurrentUserID(c)))
}

func (h *Handler) clear(c *gin.Context) {
	reply(c)(h.svc.Clear(c.Request.Context(), c.Param("sid")))
}

func reply(c *gin.Context) func(Session, error) {
	return func(s Session, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		response.OK(c, s)
	}
}

func index(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		response.BadRequest(c, "index must be an integer")
		return 0, false
	}
	return i, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, ErrNameRequired), errors.Is(err, formbuilder.ErrEditorClosed),
		errors.Is(err, formbuilder.ErrEditedFieldGone):
		response.UnprocessableEntity(c, err.Error())
	default:
		response.Error(c, err)
	}
}
