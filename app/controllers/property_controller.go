package controllers

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/app/repository"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/entitlements"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/search"
	"github.com/ManuelReschke/ImmoMap/internal/pkg/searchstate"
)

// ViewRecorder counts property detail views.
type ViewRecorder interface {
	AddPropertyView(ctx context.Context, propertyID string) error
}

// PropertyController serves property search, detail and publishing.
type PropertyController struct {
	source     search.CandidateSource
	properties repository.PropertyRepository
	profiles   repository.ProfileRepository
	pushdown   bool
	views      ViewRecorder
}

func NewPropertyController(source search.CandidateSource, properties repository.PropertyRepository, profiles repository.ProfileRepository, pushdown bool) *PropertyController {
	return &PropertyController{source: source, properties: properties, profiles: profiles, pushdown: pushdown}
}

// WithViewRecorder enables view counting on the detail endpoint.
func (pc *PropertyController) WithViewRecorder(v ViewRecorder) *PropertyController {
	pc.views = v
	return pc
}

type searchResponse struct {
	search.Page
	SearchQueryState string `json:"searchQueryState"`
}

// HandleSearch runs the search pipeline for the state carried in the
// searchQueryState query parameter. An unreadable state falls back to the
// default France-wide search.
func (pc *PropertyController) HandleSearch(c *fiber.Ctx) error {
	state := searchstate.FromQuery(url.Values{
		searchstate.QueryParam: {c.Query(searchstate.QueryParam)},
	})
	q := search.QueryFromState(state)
	cq := q.CandidateQuery(pc.pushdown)
	ctx := c.UserContext()

	if c.QueryBool("refresh", false) {
		if inv, ok := pc.source.(search.Invalidator); ok {
			if err := inv.Invalidate(ctx, cq); err != nil {
				log.Warnf("[Search] cache invalidation failed: %v", err)
			}
		}
	}

	candidates, err := pc.source.Candidates(ctx, cq)
	if err != nil {
		log.Errorf("[Search] loading candidates failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load properties")
	}

	return c.JSON(searchResponse{
		Page:             search.Run(candidates, q),
		SearchQueryState: searchstate.Encode(state),
	})
}

// searchStateUpdate is a batch of browse state changes. They are applied in
// field order: reset, map bounds, filters, pagination, visibility toggles.
type searchStateUpdate struct {
	SearchQueryState string                       `json:"searchQueryState"`
	Reset            bool                         `json:"reset"`
	MapBounds        *searchstate.Bounds          `json:"mapBounds"`
	MapZoom          *int                         `json:"mapZoom"`
	Filters          *searchstate.FilterPatch     `json:"filters"`
	Pagination       *searchstate.PaginationPatch `json:"pagination"`
	ToggleMap        bool                         `json:"toggleMap"`
	ToggleList       bool                         `json:"toggleList"`
}

// HandleUpdateSearchState applies state changes to an encoded browse state
// and returns the new encoded value for the client to replace its URL with.
// Bounds and filter changes go back to the first page.
func (pc *PropertyController) HandleUpdateSearchState(c *fiber.Ctx) error {
	var req searchStateUpdate
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	store := searchstate.NewStore(searchstate.FromQuery(url.Values{
		searchstate.QueryParam: {req.SearchQueryState},
	}), nil)
	if req.Reset {
		store.ResetToDefault()
	}
	if req.MapBounds != nil {
		store.UpdateMapBounds(*req.MapBounds, req.MapZoom)
	}
	if req.Filters != nil {
		store.UpdateFilters(*req.Filters)
	}
	if req.Pagination != nil {
		store.UpdatePagination(*req.Pagination)
	}
	if req.ToggleMap {
		store.ToggleMapVisibility()
	}
	if req.ToggleList {
		store.ToggleListVisibility()
	}

	state := store.State().Normalized()
	return c.JSON(fiber.Map{
		"searchQueryState": searchstate.Encode(state),
		"state":            state,
	})
}

// HandleGetProperty returns a single property.
func (pc *PropertyController) HandleGetProperty(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid property id")
	}

	p, err := pc.properties.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Property not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load property")
	}
	if pc.views != nil {
		if err := pc.views.AddPropertyView(c.UserContext(), id); err != nil {
			log.Warnf("[Property] counting view for %s failed: %v", id, err)
		}
	}
	return c.JSON(p)
}

// HandleCreateProperty publishes a listing if the owner still has quota.
func (pc *PropertyController) HandleCreateProperty(c *fiber.Ctx) error {
	var p models.Property
	if err := c.BodyParser(&p); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	p.ID = uuid.NewString()
	p.Featured = false
	if err := p.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Validation failed", "details": err.Error()})
	}

	ctx := c.UserContext()
	profile, err := pc.profiles.GetByUserID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Profile not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load profile")
	}
	used, err := pc.properties.CountByUserID(ctx, p.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to count listings")
	}
	if entitlements.Remaining(profile, int(used)) <= 0 {
		return jsonError(c, fiber.StatusForbidden, "Listing quota exceeded")
	}

	if err := pc.properties.Create(ctx, &p); err != nil {
		log.Errorf("[Property] create for user %s failed: %v", p.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create property")
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}
