package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoMap/app/models"
	"github.com/ManuelReschke/ImmoMap/app/repository"
)

// AncillaryController serves the directory of services around a property
// transaction.
type AncillaryController struct {
	repo repository.AncillaryServiceRepository
}

func NewAncillaryController(repo repository.AncillaryServiceRepository) *AncillaryController {
	return &AncillaryController{repo: repo}
}

func (ac *AncillaryController) HandleList(c *fiber.Ctx) error {
	offset, limit := pagingParams(c)
	filter := repository.AncillaryServiceFilter{
		Category: c.Query("category"),
		City:     c.Query("city"),
	}

	services, total, err := ac.repo.List(c.UserContext(), filter, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to list services")
	}
	return c.JSON(fiber.Map{
		"services": services,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

func (ac *AncillaryController) HandleGet(c *fiber.Ctx) error {
	s, ok, err := ac.load(c)
	if !ok {
		return err
	}
	return c.JSON(s)
}

func (ac *AncillaryController) HandleCreate(c *fiber.Ctx) error {
	var s models.AncillaryService
	if err := c.BodyParser(&s); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	s.ID = uuid.NewString()
	if err := s.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Validation failed", "details": err.Error()})
	}

	if err := ac.repo.Create(c.UserContext(), &s); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create service")
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

// HandleUpdate replaces the editable fields of a service. The id and owner
// are kept from the stored row.
func (ac *AncillaryController) HandleUpdate(c *fiber.Ctx) error {
	existing, ok, err := ac.load(c)
	if !ok {
		return err
	}

	var in models.AncillaryService
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	in.ID = existing.ID
	in.UserID = existing.UserID
	in.CreatedAt = existing.CreatedAt
	if err := in.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Validation failed", "details": err.Error()})
	}

	if err := ac.repo.Update(c.UserContext(), &in); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update service")
	}
	return c.JSON(in)
}

func (ac *AncillaryController) HandleDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid service id")
	}
	if err := ac.repo.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Service not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "Failed to delete service")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// load fetches the service named by the id route parameter. When ok is
// false the error response has already been written.
func (ac *AncillaryController) load(c *fiber.Ctx) (*models.AncillaryService, bool, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, jsonError(c, fiber.StatusBadRequest, "Invalid service id")
	}
	s, err := ac.repo.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, jsonError(c, fiber.StatusNotFound, "Service not found")
		}
		return nil, false, jsonError(c, fiber.StatusInternalServerError, "Failed to load service")
	}
	return s, true, nil
}
