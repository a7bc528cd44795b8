package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ai-chat/internal/completion"
)

// ModelsResponse lists the completion models a client may pass as modelId.
type ModelsResponse struct {
	Provider string             `json:"provider" example:"DeepSeek"`
	Models   []completion.Model `json:"models"`
}

// ListModels godoc
// @ID          listModels
// @Summary     List completion models
// @Description Returns the configured provider and its model catalogue.
// @Tags        Models
// @Produce     json
// @Success     200  {object} handlers.ModelsResponse
// @Router      /models [get]
func (h *Handlers) ListModels(c *gin.Context) {
	resp := ModelsResponse{Models: []completion.Model{}}
	if h.catalog != nil {
		resp.Provider = h.catalog.Provider()
		if m := h.catalog.Models(); m != nil {
			resp.Models = m
		}
	}
	ok(c, http.StatusOK, resp)
}
