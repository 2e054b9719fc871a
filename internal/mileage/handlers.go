package mileage

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	StartMileageKm float64 `json:"start_mileage_km"`
	GPSEnabled     bool    `json:"gps_enabled"`
}

type endRequest struct {
	EndMileageKm  float64  `json:"end_mileage_km"`
	Source        Source   `json:"source"`
	GPSDistanceKm *float64 `json:"gps_distance_km"`
}

type validateRequest struct {
	StartMileageKm float64  `json:"start_mileage_km"`
	EndMileageKm   *float64 `json:"end_mileage_km"`
	GPSDistanceKm  *float64 `json:"gps_distance_km"`
}

func driverFromCtx(c *fiber.Ctx) string {
	if id, ok := c.Locals("driver_id").(string); ok {
		return id
	}
	return ""
}

func deviceFromCtx(c *fiber.Ctx) string {
	if info, ok := c.Locals("device_info").(string); ok {
		return info
	}
	return ""
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMileageOutOfRange):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNoStartRecord):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := svc.RecordStart(c.Context(), StartInput{
			DriverID:   driverFromCtx(c),
			MileageKm:  req.StartMileageKm,
			GPSEnabled: req.GPSEnabled,
			DeviceInfo: deviceFromCtx(c),
		})
		if err != nil && rec.ID == "" {
			return fiber.NewError(statusFor(err), err.Error())
		}

		// A persisted record plus a GPS error means manual fallback: the
		// caller keeps the record and retries without tracking.
		body := fiber.Map{"record": rec}
		if err != nil {
			body["gps_error"] = err.Error()
		}
		return c.Status(fiber.StatusCreated).JSON(body)
	})

	r.Post("/end", authMiddleware, func(c *fiber.Ctx) error {
		var req endRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Source == "" {
			req.Source = SourceManual
		}

		rec, err := svc.RecordEnd(c.Context(), EndInput{
			DriverID:      driverFromCtx(c),
			MileageKm:     req.EndMileageKm,
			Source:        req.Source,
			GPSDistanceKm: req.GPSDistanceKm,
			DeviceInfo:    deviceFromCtx(c),
		})
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(rec)
	})

	r.Get("/today", authMiddleware, func(c *fiber.Ctx) error {
		var date *time.Time
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			date = &parsed
		}

		rec, err := svc.CurrentDayRecord(c.Context(), driverFromCtx(c), date)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"record": rec})
	})

	r.Get("/history", authMiddleware, func(c *fiber.Ctx) error {
		from, to, err := rangeFromQuery(c)
		if err != nil {
			return err
		}
		records, err := svc.History(c.Context(), driverFromCtx(c), from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(records)
	})

	r.Get("/anomalies", authMiddleware, func(c *fiber.Ctx) error {
		from, to, err := rangeFromQuery(c)
		if err != nil {
			return err
		}
		reports, err := svc.DetectAnomalies(c.Context(), driverFromCtx(c), from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(reports)
	})

	r.Post("/validate", authMiddleware, func(c *fiber.Ctx) error {
		var req validateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := svc.ValidateMileage(req.StartMileageKm, req.EndMileageKm, req.GPSDistanceKm)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(res)
	})

	r.Get("/records/:id/audit", authMiddleware, func(c *fiber.Ctx) error {
		entries, err := svc.AuditTrail(c.Context(), driverFromCtx(c), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}

func rangeFromQuery(c *fiber.Ctx) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	return from, to, nil
}
