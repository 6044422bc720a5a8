package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempestwx/stationcore/internal/derive"
	"github.com/tempestwx/stationcore/internal/device"
)

type fakeEngine struct {
	updates    []device.Observation
	rapidWinds int
	strikes    int
	resets     int
	updateErr  error
}

func (f *fakeEngine) Update(_ context.Context, obs device.Observation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, obs)
	return nil
}

func (f *fakeEngine) RapidWind(int64, device.Value, device.Value) { f.rapidWinds++ }
func (f *fakeEngine) StrikeEvent(int64, device.Value)             { f.strikes++ }
func (f *fakeEngine) Reset()                                      { f.resets++ }

func (f *fakeEngine) Derived() derive.Derived {
	var d derive.Derived
	d.DewPoint.Value = device.Some(8.3)
	return d
}

func testApp(engine Engine) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, engine, DeviceMap{
		TempestID: "ST-0001",
		OutAirID:  "AR-0002",
		InAirID:   "AR-0003",
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestPostObservationAccepted(t *testing.T) {
	engine := &fakeEngine{}
	app := testApp(engine)

	resp := postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_st","device_id":"ST-0001","obs":[[1755000000,0.5,1.2,2.4,180,3,1012.5,18.2,55,45000,2.1,350,0,0,0,0,2.63,1,0]]}`)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	require.Len(t, engine.updates, 1)
	obs := engine.updates[0]
	assert.Equal(t, device.Tempest, obs.Class)
	assert.Equal(t, int64(1755000000), obs.Epoch)
	assert.Equal(t, "ST-0001", obs.DeviceID)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"accepted":1}`, string(body))
}

func TestPostObservationAirClassResolution(t *testing.T) {
	engine := &fakeEngine{}
	app := testApp(engine)

	resp := postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_air","device_id":"AR-0003","obs":[[1755000000,1012.5,21.5,45,0,0,3.5,1]]}`)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp = postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_air","device_id":"AR-0002","obs":[[1755000060,1012.5,18.0,55,0,0,3.5,1]]}`)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	require.Len(t, engine.updates, 2)
	assert.Equal(t, device.IndoorAir, engine.updates[0].Class)
	assert.Equal(t, device.OutdoorAir, engine.updates[1].Class)
}

func TestPostObservationAllDuplicatesConflicts(t *testing.T) {
	engine := &fakeEngine{updateErr: derive.ErrStaleObservation}
	app := testApp(engine)

	resp := postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_st","device_id":"ST-0001","obs":[[1755000000,0,0,0,0,3,1012.5,18.2,55,0,0,0,0,0,0,0,2.63,1,0]]}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestPostObservationValidation(t *testing.T) {
	engine := &fakeEngine{}
	app := testApp(engine)

	// Missing device_id.
	resp := postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_st","obs":[[1755000000]]}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown message type.
	resp = postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_mystery","device_id":"ST-0001","obs":[[1755000000]]}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// No observation rows.
	resp = postJSON(t, app, "/api/v1/observations",
		`{"type":"obs_st","device_id":"ST-0001"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Not JSON at all.
	resp = postJSON(t, app, "/api/v1/observations", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, engine.updates)
}

func TestPostRapidWind(t *testing.T) {
	engine := &fakeEngine{}
	app := testApp(engine)

	resp := postJSON(t, app, "/api/v1/observations",
		`{"type":"rapid_wind","device_id":"ST-0001","ob":[1755000000,3.2,225]}`)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, engine.rapidWinds)

	resp = postJSON(t, app, "/api/v1/observations",
		`{"type":"rapid_wind","device_id":"ST-0001","ob":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPostStrikeEvent(t *testing.T) {
	engine := &fakeEngine{}
	app := testApp(engine)

	resp := postJSON(t, app, "/api/v1/observations",
		`{"type":"evt_strike","device_id":"ST-0001","evt":[1755000000,12,1340]}`)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, engine.strikes)
}

func TestGetDerived(t *testing.T) {
	app := testApp(&fakeEngine{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/derived", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"dew_point"`)
}

func TestGetDerivedDisplay(t *testing.T) {
	app := testApp(&fakeEngine{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/derived/display", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"dew_point":"8.3"`)
}

func TestPostReset(t *testing.T) {
	engine := &fakeEngine{}
	app := testApp(engine)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/v1/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, engine.resets)
}
