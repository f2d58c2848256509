package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/codemart/internal/order/domain"
)

type createOrderRequest struct {
	ProjectID snowflake.ID `json:"project_id"`
	Remark    string       `json:"remark"`
}

type payOrderRequest struct {
	PaymentMethod string          `json:"payment_method"`
	PointsAmount  decimal.Decimal `json:"points_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type refundOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type listOrdersQuery struct {
	Perspective string `form:"perspective"`
	Status      string `form:"status"`
	PageToken   string `form:"page_token"`
	PageSize    int32  `form:"page_size"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.CreateOrder(c.Request.Context(), orderdomain.CreateOrderRequest{
		Caller:    callerFrom(c),
		ProjectID: req.ProjectID,
		Remark:    req.Remark,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query listOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := orderdomain.ListOrdersRequest{
		Caller:      callerFrom(c),
		Perspective: orderdomain.Perspective(strings.ToLower(strings.TrimSpace(query.Perspective))),
		PageToken:   strings.TrimSpace(query.PageToken),
		PageSize:    query.PageSize,
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, ok := orderdomain.ParseStatus(raw)
		if !ok {
			AbortWithError(c, orderdomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}

	resp, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

// GetOrder accepts either the surrogate id or the order number.
func (s *Server) GetOrder(c *gin.Context) {
	req := orderdomain.GetOrderRequest{Caller: callerFrom(c)}
	raw := strings.TrimSpace(c.Param("id"))
	if id, err := snowflake.ParseString(raw); err == nil && id > 0 {
		req.OrderID = id
	} else {
		req.OrderNo = raw
	}

	order, err := s.orderSvc.Get(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) PayOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req payOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.Pay(c.Request.Context(), orderdomain.PayRequest{
		OrderID:       id,
		Caller:        callerFrom(c),
		PaymentMethod: orderdomain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		PointsAmount:  req.PointsAmount,
		BalanceAmount: req.BalanceAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) CancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	order, err := s.orderSvc.Cancel(c.Request.Context(), orderdomain.CancelRequest{
		OrderID: id,
		Caller:  callerFrom(c),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) CompleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := s.orderSvc.Complete(c.Request.Context(), orderdomain.CompleteRequest{
		OrderID: id,
		Caller:  callerFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) RefundOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req refundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.Refund(c.Request.Context(), orderdomain.RefundRequest{
		OrderID: id,
		Caller:  callerFrom(c),
		Amount:  req.Amount,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
