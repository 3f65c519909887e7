package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "quid/internal/errors"
	"quid/internal/services"
)

// PoolHandler handles pool-related requests.
type PoolHandler struct {
	poolService  services.PoolServicer
	auditService services.AuditServicer
}

// NewPoolHandler creates a new PoolHandler.
func NewPoolHandler(poolService services.PoolServicer, auditService services.AuditServicer) *PoolHandler {
	return &PoolHandler{poolService: poolService, auditService: auditService}
}

// CreatePoolRequest represents the request payload for creating a pool.
type CreatePoolRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Color     string `json:"color" binding:"omitempty,hex_color"`
}

// UpdatePoolRequest represents the request payload for updating a pool.
type UpdatePoolRequest struct {
	Name   string `json:"name" binding:"omitempty,min=1,max=100"`
	Amount *int64 `json:"amount" binding:"omitempty,gte=0"`
	Color  string `json:"color" binding:"omitempty,hex_color"`
}

// AssignPoolRequest represents the request payload for assigning a
// transaction to a pool. A null pool_id removes the assignment.
type AssignPoolRequest struct {
	PoolID *string `json:"pool_id" binding:"omitempty,uuid"`
}

// CreatePool handles the creation of a new pool.
// @Summary     Create a pool
// @Description Earmark part of an account's unallocated balance under a name
// @Tags        pools
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePoolRequest true "Pool details"
// @Success     201 {object} models.Pool "Pool created"
// @Failure     400 {object} ErrorResponse "Invalid input or over-allocation"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pools [post]
func (h *PoolHandler) CreatePool(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	pool, err := h.poolService.CreatePool(userID, req.AccountID, req.Name, req.Amount, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_POOL", "pool", pool.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "amount": req.Amount})

	c.JSON(http.StatusCreated, gin.H{"pool": pool})
}

// GetAccountPools handles listing an account's pools.
// @Summary     Get account pools
// @Description List every pool on one account
// @Tags        pools
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {array} models.Pool "Pools"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id}/pools [get]
func (h *PoolHandler) GetAccountPools(c *gin.Context) {
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

	pools, err := h.poolService.GetAccountPools(userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pools": pools})
}

// UpdatePool handles updating a pool.
// @Summary     Update a pool
// @Description Rename, recolor, or resize a pool's allocation
// @Tags        pools
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Pool ID"
// @Param       request body UpdatePoolRequest true "Fields to update"
// @Success     200 {object} models.Pool "Updated pool"
// @Failure     400 {object} ErrorResponse "Invalid input or over-allocation"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Pool not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pools/{id} [put]
func (h *PoolHandler) UpdatePool(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	poolID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	pool, err := h.poolService.UpdatePool(userID, poolID, req.Name, req.Amount, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_POOL", "pool", pool.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"pool": pool})
}

// DeletePool handles deleting a pool.
// @Summary     Delete a pool
// @Description Release the earmark; no money moves and transactions drop the assignment
// @Tags        pools
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Pool ID"
// @Success     204 "Pool deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Pool not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pools/{id} [delete]
func (h *PoolHandler) DeletePool(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	poolID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.poolService.DeletePool(userID, poolID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_POOL", "pool", poolID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// AssignTransaction handles assigning a transaction to a pool.
// @Summary     Assign a transaction to a pool
// @Description Move a transaction between pools, or unassign it with a null pool_id
// @Tags        pools
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Transaction ID"
// @Param       request body AssignPoolRequest true "Target pool"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Over-allocation or account mismatch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or pool not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/pool [put]
func (h *PoolHandler) AssignTransaction(c *gin.Context) {
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

	var req AssignPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.poolService.AssignTransaction(userID, transactionID, req.PoolID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ASSIGN_POOL", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// GetPool handles fetching a single pool.
// @Summary     Get a pool
// @Description Get one pool by id
// @Tags        pools
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Pool ID"
// @Success     200 {object} models.Pool "Pool"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Pool not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pools/{id} [get]
func (h *PoolHandler) GetPool(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	poolID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	pool, err := h.poolService.GetPoolByID(userID, poolID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pool": pool})
}
