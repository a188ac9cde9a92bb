package leaderboard

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, board Board) {
	r.Get("/", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", DefaultLimit)
		if limit < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
		}
		entries, err := board.Top(c.Context(), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}
