package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "quid/internal/errors"
	"quid/internal/models"
	"quid/internal/pagination"
	"quid/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn      func(userID, name string, amount int64, scope models.BudgetScope, categoryID, accountID *string, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error)
	getUserBudgetsFn    func(userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	getBudgetByIDFn     func(userID, budgetID string) (*models.Budget, error)
	updateBudgetFn      func(userID, budgetID, name string, amount *int64, period *models.BudgetPeriod) (*models.Budget, error)
	deleteBudgetFn      func(userID, budgetID string) error
	refreshBudgetFn     func(userID, budgetID string, now time.Time) (*services.BudgetStatus, error)
	refreshAllBudgetsFn func(userID string, now time.Time) ([]services.BudgetStatus, error)
}

func (m *mockBudgetService) CreateBudget(userID, name string, amount int64, scope models.BudgetScope, categoryID, accountID *string, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, name, amount, scope, categoryID, accountID, period, startDate)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
	if m.getUserBudgetsFn != nil {
		return m.getUserBudgetsFn(userID, page, isActive, period)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(userID, budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) UpdateBudget(userID, budgetID, name string, amount *int64, period *models.BudgetPeriod) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(userID, budgetID, name, amount, period)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

func (m *mockBudgetService) RefreshBudget(userID, budgetID string, now time.Time) (*services.BudgetStatus, error) {
	if m.refreshBudgetFn != nil {
		return m.refreshBudgetFn(userID, budgetID, now)
	}
	return &services.BudgetStatus{}, nil
}

func (m *mockBudgetService) RefreshAllBudgets(userID string, now time.Time) ([]services.BudgetStatus, error) {
	if m.refreshAllBudgetsFn != nil {
		return m.refreshAllBudgetsFn(userID, now)
	}
	return nil, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

const (
	testBudgetID   = "0190a6b2-0000-7000-8000-00000000000b"
	testCategoryID = "0190a6b2-0000-7000-8000-00000000000c"
)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.GET("/budgets/:id/status", handler.GetBudgetStatus)
	auth.POST("/budgets/refresh", handler.RefreshBudgets)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_, name string, amount int64, scope models.BudgetScope, categoryID, _ *string, period models.BudgetPeriod, _ time.Time) (*models.Budget, error) {
				return &models.Budget{
					Base:       models.Base{ID: testBudgetID},
					UserID:     testUserID,
					Name:       name,
					Amount:     amount,
					Scope:      scope,
					CategoryID: categoryID,
					Period:     period,
					IsActive:   true,
				}, nil
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets",
			`{"name":"Groceries","amount":50000,"scope":"category","category_id":"`+testCategoryID+`","period":"monthly","start_date":"2026-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["name"] != "Groceries" {
			t.Errorf("expected name Groceries, got %v", budget["name"])
		}
		if budget["scope"] != "category" {
			t.Errorf("expected scope category, got %v", budget["scope"])
		}
	})

	t.Run("returns 400 on unknown scope", func(t *testing.T) {
		handler := NewBudgetHandler(&mockBudgetService{}, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets",
			`{"name":"Groceries","amount":50000,"scope":"global","period":"monthly"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on unknown period", func(t *testing.T) {
		handler := NewBudgetHandler(&mockBudgetService{}, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets",
			`{"name":"Groceries","amount":50000,"scope":"overall","period":"daily"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 when the scope reference is missing", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_, _ string, _ int64, _ models.BudgetScope, _, _ *string, _ models.BudgetPeriod, _ time.Time) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetScopeMissing
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets",
			`{"name":"Groceries","amount":50000,"scope":"category","period":"monthly"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_SCOPE_MISSING")
	})
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	t.Run("passes the is_active filter through", func(t *testing.T) {
		var gotActive *bool
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ string, _ pagination.PageRequest, isActive *bool, _ *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
				gotActive = isActive
				resp := pagination.NewPageResponse([]models.Budget{{Base: models.Base{ID: testBudgetID}, Name: "Groceries"}}, 1, 20, 1)
				return &resp, nil
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "GET", "/budgets?is_active=true", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActive == nil || !*gotActive {
			t.Error("expected is_active filter to be true")
		}
	})
}

func TestBudgetHandler_GetBudgetStatus(t *testing.T) {
	t.Run("returns the refreshed status", func(t *testing.T) {
		svc := &mockBudgetService{
			refreshBudgetFn: func(_, budgetID string, _ time.Time) (*services.BudgetStatus, error) {
				return &services.BudgetStatus{
					BudgetID:    budgetID,
					Name:        "Groceries",
					Budgeted:    50000,
					Spent:       20000,
					Remaining:   30000,
					PercentUsed: 0.4,
				}, nil
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "GET", "/budgets/"+testBudgetID+"/status", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		status := result["status"].(map[string]interface{})
		if status["spent"] != float64(20000) {
			t.Errorf("expected spent 20000, got %v", status["spent"])
		}
		if status["remaining"] != float64(30000) {
			t.Errorf("expected remaining 30000, got %v", status["remaining"])
		}
	})

	t.Run("returns 400 on a malformed id", func(t *testing.T) {
		handler := NewBudgetHandler(&mockBudgetService{}, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "GET", "/budgets/not-a-uuid/status", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when the budget does not exist", func(t *testing.T) {
		svc := &mockBudgetService{
			refreshBudgetFn: func(_, _ string, _ time.Time) (*services.BudgetStatus, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "GET", "/budgets/"+testBudgetID+"/status", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})
}

func TestBudgetHandler_RefreshBudgets(t *testing.T) {
	t.Run("returns every status", func(t *testing.T) {
		svc := &mockBudgetService{
			refreshAllBudgetsFn: func(_ string, _ time.Time) ([]services.BudgetStatus, error) {
				return []services.BudgetStatus{
					{BudgetID: testBudgetID, Name: "Groceries"},
					{BudgetID: testCategoryID, Name: "Travel"},
				}, nil
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "POST", "/budgets/refresh", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		statuses := result["statuses"].([]interface{})
		if len(statuses) != 2 {
			t.Errorf("expected 2 statuses, got %d", len(statuses))
		}
	})
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("returns 200 with the updated budget", func(t *testing.T) {
		svc := &mockBudgetService{
			updateBudgetFn: func(_, budgetID, name string, amount *int64, _ *models.BudgetPeriod) (*models.Budget, error) {
				b := &models.Budget{Base: models.Base{ID: budgetID}, Name: name}
				if amount != nil {
					b.Amount = *amount
				}
				return b, nil
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "PUT", "/budgets/"+testBudgetID, `{"name":"Food","amount":60000}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		budget := result["budget"].(map[string]interface{})
		if budget["name"] != "Food" {
			t.Errorf("expected name Food, got %v", budget["name"])
		}
		if budget["amount"] != float64(60000) {
			t.Errorf("expected amount 60000, got %v", budget["amount"])
		}
	})

	t.Run("returns 400 on a zero amount", func(t *testing.T) {
		handler := NewBudgetHandler(&mockBudgetService{}, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "PUT", "/budgets/"+testBudgetID, `{"amount":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		var deletedID string
		svc := &mockBudgetService{
			deleteBudgetFn: func(_, budgetID string) error {
				deletedID = budgetID
				return nil
			},
		}
		handler := NewBudgetHandler(svc, &mockAuditService{})
		r := setupBudgetRouter(handler)

		rec := doRequest(r, "DELETE", "/budgets/"+testBudgetID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if deletedID != testBudgetID {
			t.Errorf("expected delete of %s, got %s", testBudgetID, deletedID)
		}
	})
}
