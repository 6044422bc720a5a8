package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tempestwx/stationcore/internal/derive"
	"github.com/tempestwx/stationcore/internal/device"
	"github.com/tempestwx/stationcore/internal/display"
)

var validate = validator.New()

// Engine is the station engine surface the handlers need.
type Engine interface {
	Update(ctx context.Context, obs device.Observation) error
	RapidWind(epoch int64, speed, dir device.Value)
	StrikeEvent(epoch int64, distance device.Value)
	Reset()
	Derived() derive.Derived
}

// DeviceMap resolves inbound device identifiers onto device classes. The
// obs_air message type is shared by the indoor and outdoor AIR modules, so
// the identifier decides which one sent it.
type DeviceMap struct {
	TempestID string
	SkyID     string
	OutAirID  string
	InAirID   string
}

// Resolve maps a message type and device identifier to a device class.
func (m DeviceMap) Resolve(msgType, deviceID string) (device.Class, bool) {
	switch msgType {
	case "obs_st":
		return device.Tempest, true
	case "obs_sky":
		return device.Sky, true
	case "obs_air":
		if deviceID != "" && deviceID == m.InAirID {
			return device.IndoorAir, true
		}
		return device.OutdoorAir, true
	default:
		return 0, false
	}
}

// observationMessage mirrors the WeatherFlow message envelope: regular
// observations carry obs (rows of fixed-position numbers), rapid_wind
// carries ob, evt_strike carries evt.
type observationMessage struct {
	Type     string  `json:"type" validate:"required"`
	DeviceID string  `json:"device_id" validate:"required"`
	Obs      [][]any `json:"obs,omitempty"`
	Ob       []any   `json:"ob,omitempty"`
	Evt      []any   `json:"evt,omitempty"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, engine Engine, devices DeviceMap) {
	v1 := app.Group("/api/v1")

	v1.Post("/observations", func(c *fiber.Ctx) error {
		var msg observationMessage
		if err := c.BodyParser(&msg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid message body")
		}
		if err := validate.Struct(msg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		switch msg.Type {
		case "rapid_wind":
			return handleRapidWind(c, engine, msg)
		case "evt_strike":
			return handleStrike(c, engine, msg)
		default:
			return handleObservation(c, engine, devices, msg)
		}
	})

	v1.Get("/derived", func(c *fiber.Ctx) error {
		return c.JSON(engine.Derived())
	})

	v1.Get("/derived/display", func(c *fiber.Ctx) error {
		return c.JSON(display.Format(engine.Derived()))
	})

	v1.Post("/reset", func(c *fiber.Ctx) error {
		engine.Reset()
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func handleObservation(c *fiber.Ctx, engine Engine, devices DeviceMap, msg observationMessage) error {
	class, ok := devices.Resolve(msg.Type, msg.DeviceID)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown message type "+msg.Type)
	}
	if len(msg.Obs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "message carries no observations")
	}

	accepted := 0
	for _, row := range msg.Obs {
		obs := device.Decode(class, msg.DeviceID, row)
		if err := engine.Update(c.UserContext(), obs); err != nil {
			if errors.Is(err, derive.ErrStaleObservation) {
				continue
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		accepted++
	}
	if accepted == 0 {
		return fiber.NewError(fiber.StatusConflict, "all observations were duplicates")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": accepted})
}

func handleRapidWind(c *fiber.Ctx, engine Engine, msg observationMessage) error {
	epoch := device.NumberAt(msg.Ob, 0)
	if !epoch.Valid {
		return fiber.NewError(fiber.StatusBadRequest, "rapid_wind message without timestamp")
	}
	engine.RapidWind(int64(epoch.Float64), device.NumberAt(msg.Ob, 1), device.NumberAt(msg.Ob, 2))
	return c.SendStatus(fiber.StatusAccepted)
}

func handleStrike(c *fiber.Ctx, engine Engine, msg observationMessage) error {
	epoch := device.NumberAt(msg.Evt, 0)
	if !epoch.Valid {
		return fiber.NewError(fiber.StatusBadRequest, "evt_strike message without timestamp")
	}
	engine.StrikeEvent(int64(epoch.Float64), device.NumberAt(msg.Evt, 1))
	return c.SendStatus(fiber.StatusAccepted)
}
