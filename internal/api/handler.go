// Package api is the HTTP front door: URL routing, request-body decoding,
// and response encoding around the execution pipeline.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/akshayaggarwal99/codebox/internal/config"
	"github.com/akshayaggarwal99/codebox/internal/pipeline"
	"github.com/akshayaggarwal99/codebox/internal/submission"
)

// Handler wires the execution pipeline and the language table to the HTTP
// surface.
type Handler struct {
	pipeline *pipeline.Pipeline
	langs    *config.Languages
}

// NewHandler builds a Handler.
func NewHandler(p *pipeline.Pipeline, langs *config.Languages) *Handler {
	return &Handler{pipeline: p, langs: langs}
}

// RegisterRoutes wires the handler's endpoints and installs an
// "Invalid URL" catch-all for anything else.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/execute", h.execute)
	e.GET("/languages", h.languages)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) && (he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed) {
			_ = c.String(http.StatusNotFound, "Invalid URL")
			return
		}
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled request error")
		_ = c.String(http.StatusInternalServerError, "Unknown error")
	}
}

type executeRequest struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// execute implements POST /execute: a malformed body or a rejected
// submission both render as 400 "Invalid json"; any pipeline failure other
// than a compile error renders as 200 "Unknown error".
func (h *Handler) execute(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid json")
	}

	sub := submission.Submission{Code: req.Code, Lang: req.Lang}
	out, err := h.pipeline.Execute(c.Request().Context(), sub)
	if err != nil {
		var subErr *submission.Error
		if errors.As(err, &subErr) && subErr.Kind == submission.ErrBadRequest {
			return c.String(http.StatusBadRequest, "Invalid json")
		}
		log.Error().Err(err).Str("lang", sub.Lang).Msg("execution pipeline failed")
		return c.String(http.StatusOK, "Unknown error")
	}

	return c.JSON(http.StatusOK, out)
}

type languagesResponse struct {
	Languages []string `json:"languages"`
}

// languages implements GET /languages, listing the configured language
// variants.
func (h *Handler) languages(c echo.Context) error {
	return c.JSON(http.StatusOK, languagesResponse{Languages: h.langs.Names()})
}
