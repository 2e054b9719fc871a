package gps

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, tracker *Tracker, provider *PushProvider, authMiddleware fiber.Handler) {
	r.Post("/points", authMiddleware, func(c *fiber.Ctx) error {
		var req LocationPoint
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "coordinates out of range")
		}
		provider.Push(req)
		rec, active := tracker.Snapshot()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"is_tracking":       active,
			"total_distance_km": rec.TotalKm,
		})
	})

	r.Get("/status", func(c *fiber.Ctx) error {
		rec, active := tracker.Snapshot()
		return c.JSON(fiber.Map{
			"is_tracking":       active,
			"tracking_id":       rec.TrackingID,
			"total_distance_km": rec.TotalKm,
			"quality":           rec.Quality,
			"quality_score":     rec.Quality.QualityScore(),
			"validity_rate":     rec.Quality.ValidityRate(),
		})
	})
}
