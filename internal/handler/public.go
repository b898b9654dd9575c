package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/raffle-ticketing/internal/model"
	"github.com/iliyamo/raffle-ticketing/internal/service"
)

// requestTimeout bounds every store round trip made by a handler.
const requestTimeout = 5 * time.Second

// PublicHandler serves the unauthenticated raffle endpoints: browsing,
// the ticket grid, purchases, ticket verification and the winner.  Every
// response goes through a public view; contact and payment data stay on
// the admin routes.
type PublicHandler struct {
	Raffles *service.RaffleService
}

func NewPublicHandler(s *service.RaffleService) *PublicHandler {
	if s == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Raffles: s}
}

// ListRaffles handles GET /v1/raffles.  ?all=true includes inactive raffles.
func (h *PublicHandler) ListRaffles(c echo.Context) error {
	all, _ := strconv.ParseBool(c.QueryParam("all"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Raffles.List(ctx, !all)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"raffles": model.PublicRaffles(list)})
}

// GetRaffle handles GET /v1/raffles/:id.
func (h *PublicHandler) GetRaffle(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Raffles.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d.Public())
}

// Grid handles GET /v1/raffles/:id/tickets.  Buyer details are never
// included.
func (h *PublicHandler) Grid(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	cells, err := h.Raffles.Grid(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": cells})
}

type purchaseReq struct {
	Numbers          []int  `json:"numbers"`
	BuyerName        string `json:"buyer_name"`
	BuyerContact     string `json:"buyer_contact"`
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference"`
	NationalID       string `json:"national_id"`
}

// Purchase handles POST /v1/raffles/:id/purchases.  The numbers are held
// as Pending until an administrator validates the payment.  A 409 lists
// every number that was no longer available; nothing is reserved then.
func (h *PublicHandler) Purchase(c echo.Context) error {
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	reserved, err := h.Raffles.RegisterPurchase(ctx, service.PurchaseInput{
		RaffleID: c.Param("id"),
		Numbers:  req.Numbers,
		Buyer: model.Buyer{
			Name:             req.BuyerName,
			Contact:          req.BuyerContact,
			PaymentMethod:    model.PaymentMethod(req.PaymentMethod),
			PaymentReference: req.PaymentReference,
			NationalID:       req.NationalID,
		},
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"numbers": reserved, "status": model.StatusPending})
}

// Winner handles GET /v1/raffles/:id/winner.
func (h *PublicHandler) Winner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Raffles.Winner(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st.Public())
}

type verifyReq struct {
	Contact string `json:"contact"`
}

// VerifyTickets handles POST /v1/tickets/verify.  A buyer sends the contact
// they registered with and gets back their validated numbers per raffle.
func (h *PublicHandler) VerifyTickets(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	found, err := h.Raffles.TicketsByContact(ctx, req.Contact)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"raffles": found})
}
