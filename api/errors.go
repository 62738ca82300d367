package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/ingestion"
	"github.com/poiesic/brandmem/storage"
)

const retryMessage = "generation is temporarily unavailable, please try again"

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	Stage      string `json:"stage,omitempty"`
	ScanReport any    `json:"scan_report,omitempty"`
}

// statusOf maps an error to the HTTP status reported to the caller.
func statusOf(err error) int {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, core.ErrUnknownTenant) {
		return http.StatusNotFound
	}
	switch core.KindOf(err) {
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindInsufficientCredits:
		return http.StatusPaymentRequired
	case core.KindServiceUnavailable, core.KindTransient:
		return http.StatusServiceUnavailable
	case core.KindTerminal, core.KindParse:
		return http.StatusBadGateway
	case core.KindCrawlUnreachable, core.KindEmptyContent:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts c with the mapped status. Model failures are reported
// with a generic retry message; their details are logged, not returned.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	kind := core.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: kind.String()}

	switch kind {
	case core.KindServiceUnavailable, core.KindTransient, core.KindTerminal, core.KindParse:
		resp.Error = retryMessage
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
	}

	var se *ingestion.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
		if len(se.Report) > 0 {
			resp.ScanReport = se.Report
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "kind", kind, "err", err)
	} else {
		h.logger.Debug("request rejected", "path", c.FullPath(), "status", status, "kind", kind, "err", err)
	}
	c.AbortWithStatusJSON(status, resp)
}
