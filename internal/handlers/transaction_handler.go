package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "quid/internal/errors"
	"quid/internal/models"
	"quid/internal/pagination"
	"quid/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
type CreateTransactionRequest struct {
	AccountID   string                 `json:"account_id" binding:"required,uuid"`
	CategoryID  *string                `json:"category_id" binding:"omitempty,uuid"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      int64                  `json:"amount" binding:"required,gt=0"`
	Description string                 `json:"description" binding:"max=500"`
	Date        time.Time              `json:"date"`

	IsSplit              bool    `json:"is_split"`
	SplitFriendName      string  `json:"split_friend_name" binding:"max=100"`
	SplitFriendAmount    int64   `json:"split_friend_amount" binding:"omitempty,gte=0"`
	SplitSettleAccountID *string `json:"split_settle_account_id" binding:"omitempty,uuid"`
	SplitSettleLabel     string  `json:"split_settle_label" binding:"max=100"`

	IsRecurring        bool                      `json:"is_recurring"`
	RecurrenceInterval models.RecurrenceInterval `json:"recurrence_interval" binding:"omitempty,recurrence_interval"`
	RecurrenceEndDate  *time.Time                `json:"recurrence_end_date"`

	PoolID *string `json:"pool_id" binding:"omitempty,uuid"`
}

// CreateTransferRequest represents the request payload for a transfer.
type CreateTransferRequest struct {
	FromAccountID string    `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string    `json:"to_account_id" binding:"required,uuid"`
	Amount        int64     `json:"amount" binding:"required,gt=0"`
	Description   string    `json:"description" binding:"max=500"`
	Date          time.Time `json:"date"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
type UpdateTransactionRequest struct {
	Description *string    `json:"description" binding:"omitempty,max=500"`
	CategoryID  *string    `json:"category_id" binding:"omitempty,uuid"`
	Date        *time.Time `json:"date"`
	Amount      *int64     `json:"amount" binding:"omitempty,gt=0"`
}

// GenerateRecurringRequest represents the request payload for generating
// recurring transaction instances.
type GenerateRecurringRequest struct {
	Horizon time.Time `json:"horizon" binding:"required"`
}

// transactionFilterFromQuery parses the optional list filters.
func transactionFilterFromQuery(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must be YYYY-MM-DD")
		}
		filter.FromDate = &parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "to must be YYYY-MM-DD")
		}
		filter.ToDate = &parsed
	}
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		filter.Type = &t
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.Query("pool_id"); v != "" {
		filter.PoolID = &v
	}
	if v := c.Query("min_amount"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "min_amount must be an integer amount in pence")
		}
		filter.MinAmount = &parsed
	}
	if v := c.Query("max_amount"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "max_amount must be an integer amount in pence")
		}
		filter.MaxAmount = &parsed
	}
	return filter, nil
}

// CreateTransaction handles the creation of a new transaction.
// @Summary     Create a transaction
// @Description Create an income or expense transaction, optionally split, recurring, or pooled
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account, category, or pool not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(userID, services.TransactionInput{
		AccountID:            req.AccountID,
		CategoryID:           req.CategoryID,
		Type:                 req.Type,
		Amount:               req.Amount,
		Description:          req.Description,
		Date:                 req.Date,
		IsSplit:              req.IsSplit,
		SplitFriendName:      req.SplitFriendName,
		SplitFriendAmount:    req.SplitFriendAmount,
		SplitSettleAccountID: req.SplitSettleAccountID,
		SplitSettleLabel:     req.SplitSettleLabel,
		IsRecurring:          req.IsRecurring,
		RecurrenceInterval:   req.RecurrenceInterval,
		RecurrenceEndDate:    req.RecurrenceEndDate,
		PoolID:               req.PoolID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// CreateTransfer handles moving money between two accounts.
// @Summary     Create a transfer
// @Description Move money between two of the user's accounts
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} models.Transaction "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/transfer [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.CreateTransfer(userID, req.FromAccountID, req.ToAccountID, req.Amount, req.Description, req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSFER", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions handles listing the user's transactions.
// @Summary     Get transactions
// @Description Get a paginated, filtered list of the user's transactions
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from        query string false "Start date (YYYY-MM-DD)"
// @Param       to          query string false "End date (YYYY-MM-DD)"
// @Param       type        query string false "Transaction type"
// @Param       category_id query string false "Filter by category"
// @Param       pool_id     query string false "Filter by pool"
// @Param       min_amount  query int    false "Minimum amount in pence"
// @Param       max_amount  query int    false "Maximum amount in pence"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAccountTransactions handles listing one account's transactions.
// @Summary     Get account transactions
// @Description Get a paginated list of transactions touching one account
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Account ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id}/transactions [get]
func (h *TransactionHandler) GetAccountTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetAccountTransactions(userID, accountID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles fetching a single transaction.
// @Summary     Get a transaction
// @Description Get one transaction by id
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating a transaction.
// @Summary     Update a transaction
// @Description Update a transaction; description and category edits on a recurring origin propagate to its instances
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, services.TransactionUpdate{
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		Amount:      req.Amount,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction.
// @Summary     Delete a transaction
// @Description Delete a transaction; deleting a recurring origin removes its generated instances
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Transaction deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// GenerateInstances handles generating instances of one recurring origin.
// @Summary     Generate recurring instances
// @Description Materialize missing instances of a recurring transaction up to a horizon
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Origin transaction ID"
// @Param       request body GenerateRecurringRequest true "Generation horizon"
// @Success     201 {array} models.Transaction "Generated instances"
// @Failure     400 {object} ErrorResponse "Not a recurring origin"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/generate [post]
func (h *TransactionHandler) GenerateInstances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	originID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	instances, err := h.transactionService.GenerateInstances(userID, originID, req.Horizon)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "GENERATE_RECURRING", "transaction", originID, c.ClientIP(),
		map[string]interface{}{"generated": len(instances)})

	c.JSON(http.StatusCreated, gin.H{"transactions": instances, "count": len(instances)})
}

// GenerateAllInstances handles generating instances for every recurring origin.
// @Summary     Generate all recurring instances
// @Description Materialize missing instances of every recurring transaction up to a horizon
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GenerateRecurringRequest true "Generation horizon"
// @Success     201 {array} models.Transaction "Generated instances"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/generate [post]
func (h *TransactionHandler) GenerateAllInstances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	instances, err := h.transactionService.GenerateAllInstances(userID, req.Horizon)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transactions": instances, "count": len(instances)})
}
