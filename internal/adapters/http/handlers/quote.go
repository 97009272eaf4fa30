package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedeck/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedeck/internal/app"
)

// Poster posts to the chat channel on demand.
type Poster interface {
	PostQuote(ctx context.Context) error
	PostTestQuote(ctx context.Context, key string) error
}

// QuoteHandler handles quote-related HTTP endpoints.
type QuoteHandler struct {
	service *app.QuoteService
	poster  Poster
}

// NewQuoteHandler creates a new quote handler.
// A nil poster leaves the posts endpoint unregistered.
func NewQuoteHandler(service *app.QuoteService, poster Poster) *QuoteHandler {
	return &QuoteHandler{
		service: service,
		poster:  poster,
	}
}

// GetRandomQuote handles GET /api/v1/quotes/random
// Draws the next quote from the deck, recording it in the history.
//
// @Summary Draw a random quote
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.QuoteResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	sel, err := h.service.GetRandomQuote(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(sel))
}

// GetQuoteByKey handles GET /api/v1/quotes/:key
// Missing keys answer with the test quote rather than 404, matching what
// a test post shows.
//
// @Summary Look up a quote by key
// @Tags quotes
// @Produce json
// @Param key path string true "Quote key"
// @Success 200 {object} dto.QuoteResponse
// @Router /api/v1/quotes/{key} [get]
func (h *QuoteHandler) GetQuoteByKey(c *gin.Context) {
	sel, err := h.service.GetQuoteByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(sel))
}

// GetSubmitters handles GET /api/v1/submitters
//
// @Summary Count quotes per submitter
// @Tags quotes
// @Produce json
// @Param limit query int false "Maximum submitters (1-100)"
// @Success 200 {object} dto.SubmittersResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/submitters [get]
func (h *QuoteHandler) GetSubmitters(c *gin.Context) {
	var query dto.SubmittersQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		respondBindError(c, err)
		return
	}

	counts := h.service.SubmitterCounts(c.Request.Context())

	c.JSON(http.StatusOK, dto.NewSubmittersResponse(counts, query))
}

// GetQuarantine handles GET /api/v1/quarantine
//
// @Summary Show records held back by validation
// @Tags collection
// @Produce json
// @Success 200 {object} dto.QuarantineResponse
// @Router /api/v1/quarantine [get]
func (h *QuoteHandler) GetQuarantine(c *gin.Context) {
	report, err := h.service.Quarantine(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.QuarantineResponse{Report: report, Empty: report == ""})
}

// Sync handles POST /api/v1/sync
//
// @Summary Sync the collection with the remote now
// @Tags collection
// @Produce json
// @Success 200 {object} app.SyncReport
// @Router /api/v1/sync [post]
func (h *QuoteHandler) Sync(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Sync(c.Request.Context()))
}

// GetDeck handles GET /api/v1/deck
//
// @Summary Show deck state and the last sync
// @Tags deck
// @Produce json
// @Success 200 {object} app.DeckStatus
// @Router /api/v1/deck [get]
func (h *QuoteHandler) GetDeck(c *gin.Context) {
	status, err := h.service.DeckStatus(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ResetDeck handles POST /api/v1/deck/reset
// Refills the deck with every key and clears the history.
//
// @Summary Start a new cycle
// @Tags deck
// @Produce json
// @Success 200 {object} app.DeckState
// @Router /api/v1/deck/reset [post]
func (h *QuoteHandler) ResetDeck(c *gin.Context) {
	state, err := h.service.ResetDeck(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// CreatePost handles POST /api/v1/posts
//
// @Summary Post to the chat channel now
// @Tags posts
// @Accept json
// @Param request body dto.PostRequest false "Optional key for a test post"
// @Success 202
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/posts [post]
func (h *QuoteHandler) CreatePost(c *gin.Context) {
	var req dto.PostRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	var err error
	if req.Key == "" {
		err = h.poster.PostQuote(c.Request.Context())
	} else {
		err = h.poster.PostTestQuote(c.Request.Context(), req.Key)
	}

	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("/random", h.GetRandomQuote)
	quotes.GET("/:key", h.GetQuoteByKey)

	rg.GET("/submitters", h.GetSubmitters)
	rg.GET("/quarantine", h.GetQuarantine)
	rg.POST("/sync", h.Sync)

	deck := rg.Group("/deck")
	deck.GET("", h.GetDeck)
	deck.POST("/reset", h.ResetDeck)

	if h.poster != nil {
		rg.POST("/posts", h.CreatePost)
	}
}

func respondBindError(c *gin.Context, err error) {
	if dto.IsValidationError(err) {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	if errors.Is(err, dto.ErrBinding) {
		dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	dto.HandleError(c, err)
}
