package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	ingest "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Ingest"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

type fakeBoardRepo struct {
	states   map[int]bsnmodels.BoardState
	readings []bsnmodels.Reading
}

func newFakeBoardRepo() *fakeBoardRepo {
	return &fakeBoardRepo{states: make(map[int]bsnmodels.BoardState)}
}

func (f *fakeBoardRepo) GetState(_ context.Context, unitID int) (*bsnmodels.BoardState, error) {
	state, ok := f.states[unitID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (f *fakeBoardRepo) CreateState(_ context.Context, state bsnmodels.BoardState) error {
	f.states[state.UnitID] = state
	return nil
}

func (f *fakeBoardRepo) UpsertState(_ context.Context, state bsnmodels.BoardState) error {
	f.states[state.UnitID] = state
	return nil
}

func (f *fakeBoardRepo) DeleteState(_ context.Context, unitID int) (bool, error) {
	if _, ok := f.states[unitID]; !ok {
		return false, nil
	}
	delete(f.states, unitID)
	return true, nil
}

func (f *fakeBoardRepo) ListUnitIDs(_ context.Context) ([]int, error) {
	ids := make([]int, 0, len(f.states))
	for id := range f.states {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeBoardRepo) InsertReading(_ context.Context, reading bsnmodels.Reading) error {
	f.readings = append(f.readings, reading)
	return nil
}

func (f *fakeBoardRepo) GetReadingsByWindow(_ context.Context, unitID int, start, end time.Time) ([]bsnmodels.Reading, error) {
	var out []bsnmodels.Reading
	for _, r := range f.readings {
		if r.UnitID == unitID && !r.CreatedAt.Before(start) && r.CreatedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSettingsRepo struct {
	settings  map[int]bsnmodels.UnitSettings
	createErr error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[int]bsnmodels.UnitSettings)}
}

func (f *fakeSettingsRepo) List(_ context.Context) ([]bsnmodels.UnitSettings, error) {
	out := make([]bsnmodels.UnitSettings, 0, len(f.settings))
	for _, s := range f.settings {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSettingsRepo) GetByUnit(_ context.Context, unitID int) (*bsnmodels.UnitSettings, error) {
	s, ok := f.settings[unitID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSettingsRepo) Create(_ context.Context, settings bsnmodels.UnitSettings) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.settings[settings.UnitID] = settings
	return nil
}

func (f *fakeSettingsRepo) Update(_ context.Context, unitID int, settings bsnmodels.UnitSettings) (bool, error) {
	if _, ok := f.settings[unitID]; !ok {
		return false, nil
	}
	f.settings[unitID] = settings
	return true, nil
}

func (f *fakeSettingsRepo) Delete(_ context.Context, unitID int) (bool, error) {
	if _, ok := f.settings[unitID]; !ok {
		return false, nil
	}
	delete(f.settings, unitID)
	return true, nil
}

func (f *fakeSettingsRepo) MaxUnitID(_ context.Context) (int, error) {
	max := 0
	for id := range f.settings {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func newSettingsRouter(t *testing.T, settingsRepo *fakeSettingsRepo, boards *fakeBoardRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "json"})
	h := hub.NewHub(log)
	svc := ingest.NewService(boards, h, noopFeed{}, log)

	router := gin.New()
	NewSettingsController(settingsRepo, svc, log).RegisterRoutes(router)
	return router
}

type noopFeed struct{}

func (noopFeed) OnNewReading(context.Context, int, bsnmodels.Reading) {}

func postAddServer(router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings/add_server", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAddServerAutoAssignsNextUnitID(t *testing.T) {
	settingsRepo := newFakeSettingsRepo()
	settingsRepo.settings[4] = bsnmodels.UnitSettings{UnitID: 4}
	boards := newFakeBoardRepo()
	router := newSettingsRouter(t, settingsRepo, boards)

	rec := postAddServer(router, map[string]interface{}{"temp_high": 40.0})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		UnitID int `json:"unit_ID"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.UnitID)
	assert.Contains(t, settingsRepo.settings, 5)
	assert.Contains(t, boards.states, 5)
}

func TestAddServerHonorsExplicitUnitID(t *testing.T) {
	settingsRepo := newFakeSettingsRepo()
	boards := newFakeBoardRepo()
	router := newSettingsRouter(t, settingsRepo, boards)

	rec := postAddServer(router, map[string]interface{}{"unit_ID": 42, "temp_high": 40.0})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, settingsRepo.settings, 42)
	assert.Contains(t, boards.states, 42)
	assert.Equal(t, 40.0, settingsRepo.settings[42].TempHigh)
}

func TestAddServerExplicitUnitIDCollision(t *testing.T) {
	settingsRepo := newFakeSettingsRepo()
	boards := newFakeBoardRepo()
	boards.states[42] = bsnmodels.BoardState{UnitID: 42}
	router := newSettingsRouter(t, settingsRepo, boards)

	rec := postAddServer(router, map[string]interface{}{"unit_ID": 42})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, settingsRepo.settings, 42, "no settings written for a duplicate unit")
}

func TestAddServerRollsBackStateWhenSettingsWriteFails(t *testing.T) {
	settingsRepo := newFakeSettingsRepo()
	settingsRepo.createErr = errors.New("write timeout")
	boards := newFakeBoardRepo()
	router := newSettingsRouter(t, settingsRepo, boards)

	rec := postAddServer(router, map[string]interface{}{"unit_ID": 7})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, boards.states, 7, "board state is removed when the settings insert fails")
}
