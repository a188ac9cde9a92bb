package tracking

import (
	"errors"

	"backend-turfwar/internal/capture"
	"backend-turfwar/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, engine *Engine, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		var req startRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		view, err := engine.Start(c.Context(), userID, req.Activity)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	r.Post("/location", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var view View
		if req.ProviderError != "" {
			view, err = engine.ReportProviderError(c.Context(), userID, req.ProviderError)
		} else {
			if req.Lat == nil || req.Lng == nil {
				return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
			}
			view, err = engine.OnLocation(c.Context(), userID, geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng, Timestamp: req.Timestamp})
		}
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(view)
	})

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		out, err := engine.Stop(c.Context(), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(out)
	})

	r.Get("/session", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := userFromLocals(c)
		if err != nil {
			return err
		}
		return c.JSON(engine.Session(userID))
	})
}

func userFromLocals(c *fiber.Ctx) (string, error) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "user_id missing")
	}
	return userID, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, capture.ErrInvalidState):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
