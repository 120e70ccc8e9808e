package server

import (
	"errors"
	"net/http"

	"github.com/Abraxas-365/siteqa/datasource"
	"github.com/Abraxas-365/siteqa/document"
	"github.com/Abraxas-365/siteqa/kb"
	"github.com/Abraxas-365/siteqa/llm"
	"github.com/Abraxas-365/siteqa/qa"
	"github.com/Abraxas-365/siteqa/vectorstore"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string   `json:"error"`
	Stage kb.Stage `json:"stage,omitempty"`
}

// statusFor maps a session error to an HTTP status. Client mistakes are
// checked before upstream failures so a generation error caused by bad
// input still reports 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case vectorstore.IsCode(err, vectorstore.ErrCodeNotIndexed):
		return http.StatusConflict
	case vectorstore.IsCode(err, vectorstore.ErrCodeInvalidArgument),
		document.IsConfigError(err),
		datasource.IsCode(err, datasource.ErrCodeInvalidURL),
		llm.IsCode(err, llm.ErrInvalidInput):
		return http.StatusBadRequest
	case datasource.IsCode(err, datasource.ErrCodeContentTooShort),
		vectorstore.IsCode(err, vectorstore.ErrCodeFormat),
		vectorstore.IsCode(err, vectorstore.ErrCodeDimensionMismatch):
		return http.StatusUnprocessableEntity
	case datasource.IsFetchError(err),
		datasource.IsRenderError(err),
		qa.IsGenerationError(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) abort(c *gin.Context, err error) {
	status := statusFor(err)
	stage, _ := kb.StageOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"stage", stage,
			"error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Stage: stage})
}
