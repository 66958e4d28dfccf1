//go:build integration

package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"rentfleet-api/internal/models"
	"rentfleet-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRentalLifecycle walks a vehicle through the whole rental flow:
// registration, contract draft, activation, a fine during the rental,
// handback, and a maintenance visit afterwards.
func TestRentalLifecycle(t *testing.T) {
	testutil.RequireIntegration(t)

	token := makeToken(t, acmeAdminID, acmeCompanyID, "company_admin")

	var vehicle models.Vehicle
	t.Run("CreateVehicle", func(t *testing.T) {
		w := doJSON(t, "POST", "/vehicles", token, map[string]interface{}{
			"plate":            "lif2e34",
			"make":             "Volkswagen",
			"model":            "Polo",
			"year":             2023,
			"daily_rate_cents": 11000,
			"odometer_km":      42000,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vehicle))

		assert.Equal(t, "LIF2E34", vehicle.Plate, "plates are stored uppercased")
		assert.Equal(t, models.VehicleAvailable, vehicle.Status)
	})

	t.Run("DuplicatePlateConflicts", func(t *testing.T) {
		w := doJSON(t, "POST", "/vehicles", token, map[string]interface{}{
			"plate": "LIF2E34",
			"make":  "Volkswagen",
			"model": "Polo",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	var tenant models.Tenant
	t.Run("CreateTenant", func(t *testing.T) {
		w := doJSON(t, "POST", "/tenants", token, map[string]interface{}{
			"full_name":       "Bruna Costa",
			"document_number": "123.456.789-00",
			"email":           "bruna@example.com",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tenant))
		assert.True(t, tenant.IsActive)
	})

	var contract models.Contract
	t.Run("CreateContractDraft", func(t *testing.T) {
		w := doJSON(t, "POST", "/contracts", token, map[string]interface{}{
			"vehicle_id":    vehicle.ID,
			"tenant_id":     tenant.ID,
			"start_date":    time.Now().Add(-48 * time.Hour).Format(time.RFC3339),
			"deposit_cents": 50000,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contract))

		assert.Equal(t, models.ContractDraft, contract.Status)
		assert.Equal(t, int64(11000), contract.DailyRateCents, "rate defaults to the vehicle's rate")
	})

	t.Run("ActivateContract", func(t *testing.T) {
		w := doJSON(t, "POST", urlf("/contracts/%d/activate", contract.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contract))

		assert.Equal(t, models.ContractActive, contract.Status)
		require.NotNil(t, contract.MileageOutKM)
		assert.Equal(t, int64(42000), *contract.MileageOutKM, "odometer captured at handover")

		// Vehicle is now rented
		vw := doJSON(t, "GET", urlf("/vehicles/%d", vehicle.ID), token, nil)
		require.Equal(t, http.StatusOK, vw.Code)
		var v models.Vehicle
		require.NoError(t, json.Unmarshal(vw.Body.Bytes(), &v))
		assert.Equal(t, models.VehicleRented, v.Status)
	})

	t.Run("SecondActiveContractConflicts", func(t *testing.T) {
		w := doJSON(t, "POST", "/contracts", token, map[string]interface{}{
			"vehicle_id":    vehicle.ID,
			"tenant_id":     tenant.ID,
			"start_date":    time.Now().Format(time.RFC3339),
			"deposit_cents": 0,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var second models.Contract
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

		aw := doJSON(t, "POST", urlf("/contracts/%d/activate", second.ID), token, nil)
		assert.Equal(t, http.StatusConflict, aw.Code, "the vehicle is already out")
	})

	var fine models.Fine
	t.Run("FineDuringRentalIsAttributed", func(t *testing.T) {
		w := doJSON(t, "POST", "/fines", token, map[string]interface{}{
			"vehicle_id":   vehicle.ID,
			"issued_at":    time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
			"amount_cents": 19500,
			"description":  "Speeding on the ring road",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fine))

		require.NotNil(t, fine.TenantID, "fine should land on the renter holding the vehicle")
		assert.Equal(t, tenant.ID, *fine.TenantID)
		require.NotNil(t, fine.ContractID)
		assert.Equal(t, contract.ID, *fine.ContractID)
		assert.Equal(t, models.FinePending, fine.Status)
	})

	t.Run("CloseContract", func(t *testing.T) {
		w := doJSON(t, "POST", urlf("/contracts/%d/close", contract.ID), token, map[string]interface{}{
			"mileage_in_km": 42350,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contract))
		assert.Equal(t, models.ContractClosed, contract.Status)

		// Vehicle released with the odometer rolled forward
		vw := doJSON(t, "GET", urlf("/vehicles/%d", vehicle.ID), token, nil)
		require.Equal(t, http.StatusOK, vw.Code)
		var v models.Vehicle
		require.NoError(t, json.Unmarshal(vw.Body.Bytes(), &v))
		assert.Equal(t, models.VehicleAvailable, v.Status)
		require.NotNil(t, v.OdometerKM)
		assert.Equal(t, int64(42350), *v.OdometerKM)
	})

	t.Run("ClosingTwiceConflicts", func(t *testing.T) {
		w := doJSON(t, "POST", urlf("/contracts/%d/close", contract.ID), token, map[string]interface{}{})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	var maintenance models.Maintenance
	t.Run("MaintenanceTakesVehicleOffFleet", func(t *testing.T) {
		w := doJSON(t, "POST", "/maintenances", token, map[string]interface{}{
			"vehicle_id":   vehicle.ID,
			"service_type": "brake inspection",
			"cost_cents":   32000,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &maintenance))
		assert.Equal(t, models.MaintenanceScheduled, maintenance.Status)

		uw := doJSON(t, "PUT", urlf("/maintenances/%d", maintenance.ID), token, map[string]interface{}{
			"status": "in_progress",
		})
		require.Equal(t, http.StatusOK, uw.Code, uw.Body.String())

		vw := doJSON(t, "GET", urlf("/vehicles/%d", vehicle.ID), token, nil)
		require.Equal(t, http.StatusOK, vw.Code)
		var v models.Vehicle
		require.NoError(t, json.Unmarshal(vw.Body.Bytes(), &v))
		assert.Equal(t, models.VehicleMaintenance, v.Status)
	})

	t.Run("CompletingMaintenanceReleasesVehicle", func(t *testing.T) {
		w := doJSON(t, "PUT", urlf("/maintenances/%d", maintenance.ID), token, map[string]interface{}{
			"status": "completed",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &maintenance))
		assert.NotNil(t, maintenance.CompletedAt)

		vw := doJSON(t, "GET", urlf("/vehicles/%d", vehicle.ID), token, nil)
		require.Equal(t, http.StatusOK, vw.Code)
		var v models.Vehicle
		require.NoError(t, json.Unmarshal(vw.Body.Bytes(), &v))
		assert.Equal(t, models.VehicleAvailable, v.Status)
	})

	t.Run("PendingFineCanBeDeleted", func(t *testing.T) {
		w := doJSON(t, "DELETE", urlf("/fines/%d", fine.ID), token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Dashboard", func(t *testing.T) {
		w := doJSON(t, "GET", "/dashboard", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var dash struct {
			Vehicles struct {
				Total     int `json:"total"`
				Available int `json:"available"`
			} `json:"vehicles"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
		assert.GreaterOrEqual(t, dash.Vehicles.Total, 4, "three seeded vehicles plus the test one")
	})
}

func TestRoleGating(t *testing.T) {
	testutil.RequireIntegration(t)

	viewer := makeToken(t, acmeAdminID, acmeCompanyID, "viewer")

	w := doJSON(t, "POST", "/vehicles", viewer, map[string]interface{}{
		"plate": "NOP3E45",
		"make":  "Renault",
		"model": "Kwid",
	})
	assert.Equal(t, http.StatusForbidden, w.Code, "viewers cannot create vehicles")

	lw := doJSON(t, "GET", "/vehicles", viewer, nil)
	assert.Equal(t, http.StatusOK, lw.Code, "viewers can still read")
}
