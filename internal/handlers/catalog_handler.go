package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/chemtalk/internal/domains/reference"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/assistant/router"
)

const catalogTimeout = 10 * time.Second

// Cataloger is the provider registry; router.Mux satisfies it.
type Cataloger interface {
	Catalog(ctx context.Context) []router.Catalog
	Active() (router.AdapterPack, bool)
}

type CompoundLookup interface {
	Get(ctx context.Context, name string) (*reference.Compound, error)
}

type CatalogHandler struct {
	providers Cataloger
	compounds CompoundLookup
	logger    *Logger.Logger
}

func NewCatalogHandler(providers Cataloger, compounds CompoundLookup, logger *Logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		providers: providers,
		compounds: compounds,
		logger:    Logger.OrNop(logger).Named("http.catalog"),
	}
}

// ListModels lists the models of every registered provider
// @Summary Provider model catalog
// @Tags Providers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ModelsResponse
// @Router /v1/providers/models [get]
func (h *CatalogHandler) ListModels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	resp := ModelsResponse{Providers: h.providers.Catalog(ctx)}
	if active, ok := h.providers.Active(); ok {
		resp.Active = active.Name
	}
	c.JSON(http.StatusOK, resp)
}

// GetCompound looks up reference data for a compound
// @Summary Compound reference
// @Tags Reference
// @Produce json
// @Security BearerAuth
// @Param name path string true "Compound name or formula"
// @Success 200 {object} ReferenceResponse
// @Failure 404 {object} ErrorResponse "Unknown compound"
// @Router /v1/reference/{name} [get]
func (h *CatalogHandler) GetCompound(c *gin.Context) {
	compound, err := h.compounds.Get(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, reference.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Unknown compound"})
	case err != nil:
		h.logger.Errorf("reference %q: %v", c.Param("name"), err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Reference lookup failed"})
	default:
		c.JSON(http.StatusOK, ReferenceResponse{Compound: *compound})
	}
}
