package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/authorization"
	ledgerdomain "github.com/smallbiznis/codemart/internal/ledger/domain"
	statsdomain "github.com/smallbiznis/codemart/internal/stats/domain"
)

type listTransactionsQuery struct {
	Currency    string `form:"currency"`
	Type        string `form:"type"`
	ReferenceID string `form:"reference_id"`
	PageToken   string `form:"page_token"`
	PageSize    int32  `form:"page_size"`
}

type grantRequest struct {
	UserID      snowflake.ID    `json:"user_id"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// MyStats returns order statistics for the caller. System callers may pass user_id.
func (s *Server) MyStats(c *gin.Context) {
	userID, err := parseOptionalSnowflakeID(c.Query("user_id"))
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}

	req := statsdomain.UserStatsRequest{
		Caller:      callerFrom(c),
		Perspective: strings.ToLower(strings.TrimSpace(c.Query("perspective"))),
	}
	if userID != nil {
		req.UserID = *userID
	}

	stats, err := s.statsSvc.UserOrderStats(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) MyAccounts(c *gin.Context) {
	caller := callerFrom(c)
	if !s.authorizeLedgerView(c) {
		return
	}

	accounts, err := s.ledgerSvc.ListAccounts(c.Request.Context(), caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": accounts})
}

func (s *Server) MyTransactions(c *gin.Context) {
	caller := callerFrom(c)
	var query listTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}
	referenceID, err := parseOptionalSnowflakeID(query.ReferenceID)
	if err != nil {
		AbortWithError(c, newValidationError("reference_id", "invalid_reference_id", "invalid reference_id"))
		return
	}
	if !s.authorizeLedgerView(c) {
		return
	}

	req := ledgerdomain.ListTransactionsRequest{
		UserID:    caller.UserID,
		Currency:  ledgerdomain.Currency(strings.ToUpper(strings.TrimSpace(query.Currency))),
		Type:      ledgerdomain.TransactionType(strings.ToUpper(strings.TrimSpace(query.Type))),
		From:      from,
		To:        to,
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	}
	if referenceID != nil {
		req.ReferenceID = *referenceID
	}

	resp, err := s.ledgerSvc.ListTransactions(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Transactions, "page_info": resp.PageInfo})
}

func (s *Server) GrantPoints(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	currency := ledgerdomain.Currency(strings.ToUpper(strings.TrimSpace(req.Currency)))
	if currency == "" {
		currency = ledgerdomain.CurrencyPoints
	}

	entry, err := s.ledgerSvc.Grant(c.Request.Context(), ledgerdomain.GrantRequest{
		Caller:      callerFrom(c),
		UserID:      req.UserID,
		Currency:    currency,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) DownloadStats(c *gin.Context) {
	projectID, ok := pathID(c)
	if !ok {
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}

	stats, err := s.statsSvc.DownloadStatistics(c.Request.Context(), statsdomain.DownloadStatsRequest{
		Caller:    callerFrom(c),
		ProjectID: projectID,
		From:      from,
		To:        to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) authorizeLedgerView(c *gin.Context) bool {
	caller := callerFrom(c)
	if caller.UserID == 0 {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "a user id is required"))
		return false
	}
	if s.authzSvc == nil {
		return true
	}
	if err := s.authzSvc.Authorize(c.Request.Context(), caller, authorization.ActionLedgerView); err != nil {
		AbortWithError(c, err)
		return false
	}
	return true
}
