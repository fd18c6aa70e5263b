package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// OrderHandler exposes the order lifecycle and the order listings.
type OrderHandler struct {
	lifecycle ports.LifecycleService
	orders    ports.OrderQueryService
}

func NewOrderHandler(lifecycle ports.LifecycleService, orders ports.OrderQueryService) *OrderHandler {
	return &OrderHandler{lifecycle: lifecycle, orders: orders}
}

// apply runs a lifecycle transition built from the :id path parameter.
func (h *OrderHandler) apply(c echo.Context, build func(orderID string) domain.Transition) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	o, err := h.lifecycle.Apply(c.Request().Context(), p, build(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

// Create opens a new order. Admins must name the client the order belongs to.
//
// @Summary      Create an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createOrderRequest  true  "Order details"
// @Success      201   {object}  domain.Order
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /client/orders [post]
// @Router       /admin/orders [post]
func (h *OrderHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		return domain.Invalid("price must be a decimal number")
	}

	o, err := h.lifecycle.Apply(c.Request().Context(), p, domain.Create{
		ClientID:       req.ClientID,
		Price:          price,
		Type:           req.Type,
		AccountLogin:   req.AccountLogin,
		AdditionalInfo: req.AdditionalInfo,
		Publish:        req.Publish,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

// Publish makes a pending order visible to boosters.
//
// @Summary      Publish an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.Order
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /client/orders/{id}/publish [put]
func (h *OrderHandler) Publish(c echo.Context) error {
	return h.apply(c, func(id string) domain.Transition { return domain.Publish{OrderID: id} })
}

// RequestNewBooster drops the current booster of the caller's order.
//
// @Summary      Request a new booster
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.Order
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /client/orders/{id}/request-booster [put]
func (h *OrderHandler) RequestNewBooster(c echo.Context) error {
	return h.apply(c, func(id string) domain.Transition { return domain.RequestNewBooster{OrderID: id} })
}

// Claim lets the calling booster take an available order.
//
// @Summary      Claim an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.Order
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /booster/orders/{id}/claim [put]
func (h *OrderHandler) Claim(c echo.Context) error {
	return h.apply(c, func(id string) domain.Transition { return domain.Claim{OrderID: id} })
}

// Abandon releases an order held by the calling booster.
//
// @Summary      Abandon an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.Order
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /booster/orders/{id}/abandon [put]
func (h *OrderHandler) Abandon(c echo.Context) error {
	return h.apply(c, func(id string) domain.Transition { return domain.Abandon{OrderID: id} })
}

// Complete finishes an order and returns the booster's new balance.
//
// @Summary      Complete an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  completeOrderResponse
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /booster/orders/{id}/complete [put]
func (h *OrderHandler) Complete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	o, balance, err := h.lifecycle.Complete(c.Request().Context(), p, domain.Complete{OrderID: c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, completeOrderResponse{Order: o, Wallet: balance})
}

// Assign puts a booster on an available order.
//
// @Summary      Assign a booster
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Order ID"
// @Param        body  body      assignBoosterRequest  true  "Booster"
// @Success      200   {object}  domain.Order
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/orders/{id}/assign-booster [put]
func (h *OrderHandler) Assign(c echo.Context) error {
	var req assignBoosterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(id string) domain.Transition {
		return domain.Assign{OrderID: id, BoosterID: req.BoosterID}
	})
}

// RemoveBooster clears the booster of an order.
//
// @Summary      Remove the booster
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.Order
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /admin/orders/{id}/remove-booster [put]
func (h *OrderHandler) RemoveBooster(c echo.Context) error {
	return h.apply(c, func(id string) domain.Transition { return domain.RemoveBooster{OrderID: id} })
}

// Get returns one order visible to the caller.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  domain.Order
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	o, err := h.orders.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

// ListAvailable returns the orders boosters can claim.
//
// @Summary      List available orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum number of orders"
// @Success      200    {object}  listOrdersResponse
// @Router       /booster/orders [get]
func (h *OrderHandler) ListAvailable(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.ListAvailable(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listOrdersResponse{Data: orders, Count: len(orders)})
}

// History returns the caller's own orders.
//
// @Summary      Order history
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum number of orders"
// @Success      200    {object}  listOrdersResponse
// @Router       /client/orders/history [get]
// @Router       /booster/orders/history [get]
func (h *OrderHandler) History(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.History(c.Request().Context(), p, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listOrdersResponse{Data: orders, Count: len(orders)})
}

// ListAll is the administrative listing.
//
// @Summary      List all orders
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"  Enums(Pending, Available, InProgress, Completed)
// @Param        limit   query     int     false  "Maximum number of orders"
// @Success      200     {object}  listOrdersResponse
// @Failure      422     {object}  errorResponse
// @Router       /admin/orders [get]
func (h *OrderHandler) ListAll(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	status := domain.OrderStatus(c.QueryParam("status"))
	orders, err := h.orders.ListAll(c.Request().Context(), status, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listOrdersResponse{Data: orders, Count: len(orders)})
}

// SubmitFeedback stores the client's feedback on a completed order.
//
// @Summary      Leave feedback
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Order ID"
// @Param        body  body      feedbackRequest  true  "Feedback"
// @Success      200   {object}  domain.Order
// @Failure      409   {object}  errorResponse
// @Router       /client/orders/{id}/feedback [post]
func (h *OrderHandler) SubmitFeedback(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req feedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	o, err := h.orders.SubmitFeedback(c.Request().Context(), p, c.Param("id"), req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

// Delete removes an order.
//
// @Summary      Delete an order
// @Tags         admin
// @Security     BearerAuth
// @Param        id  path  string  true  "Order ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /admin/orders/{id} [delete]
func (h *OrderHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.orders.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Update edits the descriptive fields of an order. Status and booster are
// only changed through the lifecycle endpoints.
//
// @Summary      Edit order details
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Order ID"
// @Param        body  body      updateOrderRequest  true  "Fields to change"
// @Success      200   {object}  domain.Order
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/orders/{id} [put]
func (h *OrderHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	o, err := h.orders.UpdateDetails(c.Request().Context(), p, c.Param("id"), domain.OrderDetails{
		Type:           req.Type,
		AccountLogin:   req.AccountLogin,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
