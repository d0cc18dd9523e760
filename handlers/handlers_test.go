package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/sla"
	"github.com/phonginreallife/leadtriage/services"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const (
	testUserID     = "9d8e7f60-1a2b-4c3d-8e9f-0a1b2c3d4e01"
	testLeadID     = "5b0f6c2e-7a41-4d2b-9c1e-2f3a4b5c6d01"
	testActivityID = "c1d2e3f4-0a1b-4c2d-9e3f-4a5b6c7d8e09"
)

// MockLeadLister feeds TriageService without a database
type MockLeadLister struct {
	mock.Mock
}

func (m *MockLeadLister) ListLeads(filters map[string]interface{}) ([]db.Lead, error) {
	args := m.Called(filters)
	return args.Get(0).([]db.Lead), args.Error(1)
}

func testLeads() []db.Lead {
	ts := func(d time.Duration) string { return testNow.Add(-d).Format(time.RFC3339) }
	return []db.Lead{
		{ID: "1", Name: "Nguyễn An", Source: "Facebook", Status: "NEW", OwnerID: "u1", Country: "Úc", CreatedAt: ts(40 * time.Minute)},
		{ID: "2", Name: "Trần Bình", Source: "Website", Status: "CONTACTED", OwnerID: "u2", CreatedAt: ts(3 * time.Hour)},
		{ID: "3", Name: "Lê Chi", Source: "Facebook", Status: "CONTACTED", OwnerID: "u1", CreatedAt: ts(10 * time.Minute)},
	}
}

// withUser stands in for RequireAuth
func withUser(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	}
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth := services.NewAuthService("secret")
	r := gin.New()
	r.Use(NewAuthMiddleware(auth).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("user_role")})
	})

	t.Run("missing header", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		tok, err := auth.IssueToken("u1", "an@example.com", services.RoleSales, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
		assert.Contains(t, w.Body.String(), `"role":"sales"`)
	})
}

func TestRequireSLAOverride(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for role, want := range map[string]int{
		services.RoleAdmin:   http.StatusOK,
		services.RoleManager: http.StatusOK,
		services.RoleSales:   http.StatusForbidden,
		"":                   http.StatusForbidden,
	} {
		r := gin.New()
		r.Use(withUser("u1", role), RequireSLAOverride())
		r.PUT("/leads/:id/sla", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := perform(r, http.MethodPut, "/leads/1/sla", "")
		assert.Equal(t, want, w.Code, "role %q", role)
	}
}

func newLeadRouter(t *testing.T, lister *MockLeadLister) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	triage := services.NewTriageService(lister, "")
	triage.Now = sla.FixedClock(testNow)
	h := NewLeadHandler(services.NewLeadService(pg), triage)
	h.now = sla.FixedClock(testNow)

	r := gin.New()
	r.Use(withUser(testUserID, services.RoleManager))
	r.GET("/leads", h.ListLeads)
	r.POST("/leads/search", h.SearchLeads)
	r.POST("/leads", h.CreateLead)
	r.GET("/leads/:id", h.GetLead)
	r.PUT("/leads/:id/sla", h.SetSLAOverride)
	r.POST("/leads/:id/activities/:activity_id/complete", h.CompleteActivity)
	return r, mockDB
}

func TestLeadHandler_ListLeads(t *testing.T) {
	lister := new(MockLeadLister)
	lister.On("ListLeads", mock.Anything).Return(testLeads(), nil)
	r, _ := newLeadRouter(t, lister)

	w := perform(r, http.MethodGet, "/leads?filter=source:facebook&groupby=status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var res services.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"status"}, res.GroupBy)
	assert.Equal(t, []string{"NEW", "CONTACTED"}, res.GroupKeys)
	require.NotNil(t, res.Leads[0].SLABadge)
	assert.Equal(t, "40p", res.Leads[0].SLABadge.Text)
}

func TestLeadHandler_ListLeads_BadFilter(t *testing.T) {
	r, _ := newLeadRouter(t, new(MockLeadLister))

	w := perform(r, http.MethodGet, "/leads?filter=source", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadHandler_SearchLeads(t *testing.T) {
	lister := new(MockLeadLister)
	lister.On("ListLeads", mock.Anything).Return(testLeads(), nil)
	r, _ := newLeadRouter(t, lister)

	body := `{"filters":[
		{"field":"search","value":"bình","type":"filter"},
		{"field":"search","value":"chi","type":"filter"}
	]}`
	w := perform(r, http.MethodPost, "/leads/search", body)
	require.Equal(t, http.StatusOK, w.Code)

	var res services.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Contains(t, w.Body.String(), `"operator":"in"`)

	// Chips need a field and a type
	w = perform(r, http.MethodPost, "/leads/search", `{"filters":[{"value":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadHandler_GetLead_NotFound(t *testing.T) {
	r, mockDB := newLeadRouter(t, new(MockLeadLister))

	mockDB.ExpectQuery(`FROM leads l WHERE l.id = \$1`).
		WithArgs(testLeadID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := perform(r, http.MethodGet, "/leads/"+testLeadID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLeadHandler_CreateLead(t *testing.T) {
	r, mockDB := newLeadRouter(t, new(MockLeadLister))

	t.Run("owner defaults to caller", func(t *testing.T) {
		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO leads").
			WithArgs(sqlmock.AnyArg(), "Phạm Dũng", "", "", "Website", "NEW", testUserID, "", "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mockDB.ExpectExec("INSERT INTO lead_activities").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mockDB.ExpectCommit()

		w := perform(r, http.MethodPost, "/leads", `{"name":"Phạm Dũng","source":"Website"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"owner_id":"`+testUserID+`"`)
	})

	t.Run("owner must be a user id", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/leads", `{"name":"Phạm Dũng","owner_id":"sales-42"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLeadHandler_MalformedIDs(t *testing.T) {
	r, mockDB := newLeadRouter(t, new(MockLeadLister))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"get lead", http.MethodGet, "/leads/not-a-uuid", ""},
		{"set override", http.MethodPut, "/leads/abc/sla", `{"sla_status":"danger"}`},
		{"complete activity", http.MethodPost, "/leads/" + testLeadID + "/activities/a9/complete", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLeadHandler_SetSLAOverride(t *testing.T) {
	r, mockDB := newLeadRouter(t, new(MockLeadLister))

	t.Run("unknown status", func(t *testing.T) {
		w := perform(r, http.MethodPut, "/leads/"+testLeadID+"/sla", `{"sla_status":"critical"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing body field", func(t *testing.T) {
		w := perform(r, http.MethodPut, "/leads/"+testLeadID+"/sla", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("danger", func(t *testing.T) {
		mockDB.ExpectExec("UPDATE leads SET sla_status").
			WithArgs("danger", "Khách VIP", testLeadID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := perform(r, http.MethodPut, "/leads/"+testLeadID+"/sla", `{"sla_status":"danger","sla_reason":"Khách VIP"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestLeadHandler_CompleteActivity_NotFound(t *testing.T) {
	r, mockDB := newLeadRouter(t, new(MockLeadLister))

	mockDB.ExpectExec("UPDATE lead_activities SET status").
		WithArgs("completed", testActivityID, testLeadID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := perform(r, http.MethodPost, "/leads/"+testLeadID+"/activities/"+testActivityID+"/complete", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func newSLARouter(t *testing.T, lister *MockLeadLister) (*gin.Engine, sqlmock.Sqlmock) {
	return newSLARouterFor(t, lister, testUserID)
}

func newSLARouterFor(t *testing.T, lister *MockLeadLister, userID string) (*gin.Engine, sqlmock.Sqlmock) {
	gin.SetMode(gin.TestMode)

	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	triage := services.NewTriageService(lister, "")
	triage.Now = sla.FixedClock(testNow)
	h := NewSLAHandler(triage, services.NewSettingsService(pg, sla.DefaultConfig()))

	r := gin.New()
	r.Use(withUser(userID, services.RoleSales))
	r.GET("/sla/warnings", h.GetWarnings)
	r.GET("/sla/settings", h.GetSettings)
	r.PUT("/sla/settings", h.UpdateSettings)
	return r, mockDB
}

func expectNoSettings(mockDB sqlmock.Sqlmock) {
	mockDB.ExpectQuery("FROM sla_settings WHERE owner_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"ack_time_minutes", "first_action_time_minutes"}))
}

func TestSLAHandler_GetWarnings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		lister := new(MockLeadLister)
		lister.On("ListLeads", map[string]interface{}{}).Return(testLeads(), nil)
		r, mockDB := newSLARouter(t, lister)
		expectNoSettings(mockDB)

		w := perform(r, http.MethodGet, "/sla/warnings", "")
		require.Equal(t, http.StatusOK, w.Code)

		var res struct {
			Warnings []struct {
				Type string `json:"type"`
				Lead struct {
					ID string `json:"id"`
				} `json:"lead"`
			} `json:"warnings"`
			UrgentCount int `json:"urgent_count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

		// Lead 2: 180 min without contact, lead 1: 40 min unacknowledged
		require.Len(t, res.Warnings, 2)
		assert.Equal(t, "2", res.Warnings[0].Lead.ID)
		assert.Equal(t, "slow_interaction", res.Warnings[0].Type)
		assert.Equal(t, "1", res.Warnings[1].Lead.ID)
		assert.Equal(t, 1, res.UrgentCount)
	})

	t.Run("mine with query thresholds", func(t *testing.T) {
		lister := new(MockLeadLister)
		lister.On("ListLeads", map[string]interface{}{"owner_id": testUserID}).Return(testLeads(), nil)
		r, mockDB := newSLARouter(t, lister)
		expectNoSettings(mockDB)

		w := perform(r, http.MethodGet, "/sla/warnings?mine=true&ack_minutes=60", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":0`)
		assert.Contains(t, w.Body.String(), `"ack_time_minutes":60`)
	})

	t.Run("bad threshold", func(t *testing.T) {
		r, mockDB := newSLARouter(t, new(MockLeadLister))
		expectNoSettings(mockDB)

		w := perform(r, http.MethodGet, "/sla/warnings?ack_minutes=soon", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSLAHandler_UpdateSettings(t *testing.T) {
	r, mockDB := newSLARouter(t, new(MockLeadLister))

	w := perform(r, http.MethodPut, "/sla/settings", `{"ack_time_minutes":0,"first_action_time_minutes":30}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockDB.ExpectExec("INSERT INTO sla_settings").
		WithArgs(testUserID, 10, 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w = perform(r, http.MethodPut, "/sla/settings", `{"ack_time_minutes":10,"first_action_time_minutes":30}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"owner_id":"`+testUserID+`"`)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestSLAHandler_NonUUIDSubject(t *testing.T) {
	lister := new(MockLeadLister)
	lister.On("ListLeads", map[string]interface{}{"owner_id": "sales-42"}).Return([]db.Lead{}, nil)
	r, mockDB := newSLARouterFor(t, lister, "sales-42")

	t.Run("warnings fall back to default thresholds", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/sla/warnings?mine=true", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ack_time_minutes":15`)
	})

	t.Run("settings read returns defaults", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/sla/settings", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"first_action_time_minutes":60`)
	})

	t.Run("settings write is rejected", func(t *testing.T) {
		w := perform(r, http.MethodPut, "/sla/settings", `{"ack_time_minutes":10,"first_action_time_minutes":30}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}
