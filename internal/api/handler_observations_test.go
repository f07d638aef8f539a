package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bluewave-telemetry-backend/config"
	"bluewave-telemetry-backend/internal/model"
	"bluewave-telemetry-backend/internal/mw"
	"bluewave-telemetry-backend/internal/observability"
	"bluewave-telemetry-backend/internal/quarter"
	"bluewave-telemetry-backend/internal/store"
)

const testSigningKey = "test-signing-key"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
			CacheTTLSeconds: 1,
		},
		Auth: config.AuthConfig{
			SigningKey: testSigningKey,
			TokenTTL:   time.Hour,
			Users: []config.UserConfig{
				{Username: "researcher", Password: "secret", Role: "researcher", Tier: "raw"},
				{Username: "viewer", Password: "secret", Role: "viewer", Tier: "processed"},
			},
		},
	}
}

func setupRouter(t *testing.T) (http.Handler, store.Store) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Buoy{}, &model.Observation{}))

	buoy := model.Buoy{Name: "BW-001", Lat: 6.4, Lon: 3.4, Status: model.BuoyStatusActive}
	require.NoError(t, db.Create(&buoy).Error)

	s := store.NewGormStore(db)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewRouter(s, testConfig(), metrics), s
}

func mintToken(t *testing.T, tier string) string {
	claims := mw.Claims{
		Tier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func observationBody(observedAt time.Time, notes string) map[string]any {
	return map[string]any{
		"buoy_id":          1,
		"observed_at":      observedAt.Format(time.RFC3339),
		"timezone":         "UTC",
		"lat":              6.4312999,
		"lon":              3.4100444,
		"temp_c":           24.5,
		"humidity":         55.0,
		"wind_m_s":         3.2,
		"precipitation_mm": 0.0,
		"haze":             false,
		"notes":            notes,
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestObservationsRequireAuth(t *testing.T) {
	router, _ := setupRouter(t)
	w := doJSON(t, router, http.MethodGet, "/observations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateObservationSingleAndBulk(t *testing.T) {
	router, _ := setupRouter(t)
	token := mintToken(t, "raw")
	now := time.Now().UTC().Truncate(time.Second)

	w := doJSON(t, router, http.MethodPost, "/observations", token, observationBody(now, "single"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Len(t, body["created"], 1)

	bulk := []map[string]any{
		observationBody(now, "a"),
		observationBody(now.Add(time.Hour), "b"),
		observationBody(now.Add(2*time.Hour), "c"),
	}
	w = doJSON(t, router, http.MethodPost, "/observations", token, bulk)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body = decodeBody(t, w)
	created := body["created"].([]any)
	items := body["items"].([]any)
	require.Len(t, created, 3)
	require.Len(t, items, 3)
	// Items come back in input order.
	assert.Equal(t, "a", items[0].(map[string]any)["notes"])
	assert.Equal(t, "c", items[2].(map[string]any)["notes"])
}

func TestCreateObservationInvalidPayloads(t *testing.T) {
	router, s := setupRouter(t)
	token := mintToken(t, "raw")
	now := time.Now().UTC()

	countObservations := func() int64 {
		var n int64
		require.NoError(t, s.DB().Model(&model.Observation{}).Count(&n).Error)
		return n
	}

	// Empty body.
	w := doJSON(t, router, http.MethodPost, "/observations", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// JSON null.
	req, _ := http.NewRequest(http.MethodPost, "/observations", bytes.NewReader([]byte("null")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty array.
	w = doJSON(t, router, http.MethodPost, "/observations", token, []map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Out-of-range humidity.
	bad := observationBody(now, "bad")
	bad["humidity"] = 500.0
	w = doJSON(t, router, http.MethodPost, "/observations", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing required field.
	missing := observationBody(now, "bad")
	delete(missing, "observed_at")
	w = doJSON(t, router, http.MethodPost, "/observations", token, missing)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// One invalid item poisons the whole batch: nothing is persisted.
	batch := []map[string]any{observationBody(now, "good"), bad}
	w = doJSON(t, router, http.MethodPost, "/observations", token, batch)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), countObservations())
}

func TestListObservationsPaginationDefaults(t *testing.T) {
	router, _ := setupRouter(t)
	token := mintToken(t, "raw")

	testCases := []struct {
		query       string
		wantPage    float64
		wantPerPage float64
	}{
		{"", 1, 100},
		{"?page=0&per_page=0", 1, 1},
		{"?page=abc&per_page=abc", 1, 100},
		{"?per_page=5000", 1, 1000},
		{"?page=2&per_page=10", 2, 10},
	}

	for _, tc := range testCases {
		t.Run("query "+tc.query, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/observations"+tc.query, token, nil)
			require.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tc.wantPage, body["page"])
			assert.Equal(t, tc.wantPerPage, body["per_page"])
		})
	}
}

func TestListObservationsFilterComposition(t *testing.T) {
	router, s := setupRouter(t)
	token := mintToken(t, "raw")

	buoy2 := model.Buoy{Name: "BW-002", Lat: 7, Lon: 4, Status: model.BuoyStatusActive}
	require.NoError(t, s.DB().Create(&buoy2).Error)

	base := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	bulk := []map[string]any{
		observationBody(base, "early"),
		observationBody(base.Add(48*time.Hour), "late"),
	}
	other := observationBody(base.Add(24*time.Hour), "other-buoy")
	other["buoy_id"] = buoy2.ID

	w := doJSON(t, router, http.MethodPost, "/observations", token, bulk)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/observations", token, other)
	require.Equal(t, http.StatusCreated, w.Code)

	listNotes := func(query string) []string {
		w := doJSON(t, router, http.MethodGet, "/observations"+query, token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		var notes []string
		for _, item := range body["items"].([]any) {
			notes = append(notes, item.(map[string]any)["notes"].(string))
		}
		return notes
	}

	combined := listNotes("?buoy_id=1&from=2025-08-01T12:00:00Z&to=2025-08-04T00:00:00Z")
	assert.Equal(t, []string{"late"}, combined)

	// Dropping a filter only ever widens the result.
	wider := listNotes("?buoy_id=1")
	assert.Subset(t, wider, combined)
	assert.ElementsMatch(t, []string{"early", "late"}, wider)

	// Malformed date filter is an error, not silently ignored.
	w = doJSON(t, router, http.MethodGet, "/observations?from=lastweek", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetObservationProjectionByTier(t *testing.T) {
	router, _ := setupRouter(t)
	rawToken := mintToken(t, "raw")
	now := time.Now().UTC().Truncate(time.Second)

	w := doJSON(t, router, http.MethodPost, "/observations", rawToken, observationBody(now, "confidential"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decodeBody(t, w)["created"].([]any)[0].(float64))

	path := fmt.Sprintf("/observations/%d", id)

	w = doJSON(t, router, http.MethodGet, path, rawToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw := decodeBody(t, w)
	assert.Equal(t, "confidential", raw["notes"])
	assert.Equal(t, 6.4312999, raw["lat"])

	w = doJSON(t, router, http.MethodGet, path, mintToken(t, "processed"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	processed := decodeBody(t, w)
	_, hasNotes := processed["notes"]
	assert.False(t, hasNotes)
	assert.Equal(t, 6.431, processed["lat"])
	assert.Equal(t, 3.41, processed["lon"])

	// An unrecognized tier claim degrades to processed.
	w = doJSON(t, router, http.MethodGet, path, mintToken(t, "platinum"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, hasNotes = decodeBody(t, w)["notes"]
	assert.False(t, hasNotes)
}

func TestMutationsRespectQuarterLock(t *testing.T) {
	// Freeze "now" mid-Q3 2025 so quarter membership is deterministic.
	now := time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC)
	quarter.SetClock(clockwork.NewFakeClockAt(now))
	defer quarter.SetClock(nil)

	router, s := setupRouter(t)
	token := mintToken(t, "raw")

	create := func(observedAt time.Time) int64 {
		w := doJSON(t, router, http.MethodPost, "/observations", token, observationBody(observedAt, "ok"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return int64(decodeBody(t, w)["created"].([]any)[0].(float64))
	}

	currentID := create(now.Add(-time.Hour))
	// Creation itself is never locked, even for a historical timestamp.
	lockedID := create(time.Date(2025, time.February, 15, 10, 0, 0, 0, time.UTC))

	// Current-quarter record mutates freely.
	w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/observations/%d", currentID), token, map[string]any{"notes": "patched"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "patched", decodeBody(t, w)["notes"])

	lockedPath := fmt.Sprintf("/observations/%d", lockedID)

	w = doJSON(t, router, http.MethodPatch, lockedPath, token, map[string]any{"notes": "sneaky"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "locked")

	w = doJSON(t, router, http.MethodPut, lockedPath, token, observationBody(now, "sneaky"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodDelete, lockedPath, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The rejected mutations left the record untouched.
	var stored model.Observation
	require.NoError(t, s.DB().First(&stored, lockedID).Error)
	assert.Equal(t, "ok", stored.Notes)

	// Reads are never quarter-locked.
	w = doJSON(t, router, http.MethodGet, lockedPath, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMutationsOnMissingObservation(t *testing.T) {
	router, _ := setupRouter(t)
	token := mintToken(t, "raw")
	now := time.Now().UTC()

	w := doJSON(t, router, http.MethodGet, "/observations/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPut, "/observations/9999", token, observationBody(now, "x"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPatch, "/observations/9999", token, map[string]any{"notes": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/observations/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchValidatesHumidityRange(t *testing.T) {
	router, _ := setupRouter(t)
	token := mintToken(t, "raw")
	now := time.Now().UTC()

	w := doJSON(t, router, http.MethodPost, "/observations", token, observationBody(now, "ok"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decodeBody(t, w)["created"].([]any)[0].(float64))

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/observations/%d", id), token, map[string]any{"humidity": 101.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
