package integration

import (
	"net/http"
	"testing"
)

func TestAdminFlow(t *testing.T) {
	app := setupApp(t)
	userToken := app.login("auth0|user", "user@example.com", nil, nil)
	adminToken := app.login("auth0|admin", "admin@example.com", nil, []string{adminRole})
	userID := app.syncUser(t, userToken)
	adminID := app.syncUser(t, adminToken)

	t.Run("listing requires the admin role", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/users", "", userToken)
		expectStatus(t, rec, http.StatusForbidden)

		rec = app.request("GET", "/api/v1/users?page=1&page_size=10", "", adminToken)
		expectStatus(t, rec, http.StatusOK)
		if total := parseJSON(t, rec)["total_items"]; total != float64(2) {
			t.Errorf("expected 2 users, got %v", total)
		}
	})

	t.Run("users may only manage themselves", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/users/"+adminID, "", userToken)
		expectStatus(t, rec, http.StatusForbidden)

		rec = app.request("PATCH", "/api/v1/users/"+userID, `{"name":"Renamed"}`, userToken)
		expectStatus(t, rec, http.StatusOK)
		if name := parseJSON(t, rec)["user"].(map[string]interface{})["name"]; name != "Renamed" {
			t.Errorf("expected Renamed, got %v", name)
		}
	})

	t.Run("admin may manage anyone", func(t *testing.T) {
		rec := app.request("PATCH", "/api/v1/users/"+userID, `{"onboarding_status":"complete"}`, adminToken)
		expectStatus(t, rec, http.StatusOK)

		rec = app.request("DELETE", "/api/v1/users/"+userID, "", adminToken)
		expectStatus(t, rec, http.StatusNoContent)

		rec = app.request("GET", "/api/v1/users/"+userID, "", adminToken)
		expectStatus(t, rec, http.StatusNotFound)
	})
}
