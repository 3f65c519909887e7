package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "quid/internal/errors"
	"quid/internal/services"
)

// AnalyticsHandler handles spending analytics requests.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetSpendingByCategory handles the per-category spending breakdown.
// @Summary     Spending by category
// @Description Total expenses per category over a date range, largest first
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from query string true "Start date (YYYY-MM-DD)"
// @Param       to   query string true "End date (YYYY-MM-DD)"
// @Success     200 {array} services.CategorySpend "Category totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/spending [get]
func (h *AnalyticsHandler) GetSpendingByCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must be YYYY-MM-DD"))
		return
	}

	out, err := h.analyticsService.SpendingByCategory(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"spending": out})
}

// GetMonthlySummary handles the per-month income and expense summary.
// @Summary     Monthly summary
// @Description Income, expense, and net totals per calendar month of a year
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       year query int true "Year (e.g. 2026)"
// @Success     200 {array} services.MonthlyTotal "Monthly totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/monthly [get]
func (h *AnalyticsHandler) GetMonthlySummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 1970 || year > 9999 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be a four digit year"))
		return
	}

	out, err := h.analyticsService.MonthlySummary(userID, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"months": out})
}
