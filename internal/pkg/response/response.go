package response

import (
	"net/http"
	"reflect"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/modules/formbuilder"
	"github.com/formvoice/core/internal/modules/submission"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/blobstore"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// pagedResponse is the envelope for paginated list responses.
type pagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, pagedResponse{
		Data:       data,
		Pagination: pagination,
	})
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"ok": 0, "code": code, "message": message})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, "authentication required")
}

// Forbidden sends a 403 error response with a message.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, "not found")
}

// NotFoundMsg sends a 404 error with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, err error) {
	abort(c, http.StatusInternalServerError, err.Error())
}

// UnprocessableEntity sends a 422 error response.
func UnprocessableEntity(c *gin.Context, message string) {
	abort(c, http.StatusUnprocessableEntity, message)
}

// Invalid sends a 422 response carrying per-field details.
func Invalid(c *gin.Context, message string, details interface{}) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"ok":      0,
		"code":    http.StatusUnprocessableEntity,
		"message": message,
		"errors":  details,
	})
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	abort(c, http.StatusConflict, message)
}

// TooLarge sends a 413 error response.
func TooLarge(c *gin.Context, message string) {
	abort(c, http.StatusRequestEntityTooLarge, message)
}

// FieldError is one failed struct validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Error maps domain validation, persistence and storage failures onto status
// codes; anything else is a 500.
func Error(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if vs, ok := submission.AsViolations(err); ok {
		Invalid(c, "submission invalid", vs)
		return
	}
	switch {
	case formbuilder.IsValidation(err):
		UnprocessableEntity(c, err.Error())
	case errors.As(err, &verrs):
		details := make([]FieldError, len(verrs))
		for i, fe := range verrs {
			details[i] = FieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()}
		}
		Invalid(c, "validation failed", details)
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, blobstore.ErrNotFound):
		NotFound(c)
	case errors.Is(err, backend.ErrConflict), errors.Is(err, blobstore.ErrObjectExists):
		Conflict(c, err.Error())
	case blobstore.IsStorage(err):
		abort(c, http.StatusBadGateway, err.Error())
	default:
		InternalError(c, err)
	}
}
