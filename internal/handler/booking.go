package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/middleware"
	"github.com/Felicien407/car-rental-system/internal/model"
	"github.com/Felicien407/car-rental-system/internal/repository"
)

// BookingReader serves the read side of bookings; *repository.BookingRepo
// implements it.
type BookingReader interface {
	List(ctx context.Context, customerID uint64) ([]repository.BookingDetail, error)
	GetByID(ctx context.Context, id uint64) (repository.BookingDetail, error)
}

// BookingHandler exposes the allocator over HTTP.
type BookingHandler struct {
	Allocator *booking.Allocator
	Bookings  BookingReader
}

func NewBookingHandler(a *booking.Allocator, r BookingReader) *BookingHandler {
	if a == nil || r == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Allocator: a, Bookings: r}
}

type createBookingReq struct {
	CarID     uint64 `json:"car_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

type customerPart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type bookingResp struct {
	ID           uint64                `json:"id"`
	CarID        uint64                `json:"car_id"`
	CustomerID   uint64                `json:"customer_id"`
	CustomerName string                `json:"customer_name"`
	StartDate    string                `json:"start_date"`
	EndDate      string                `json:"end_date"`
	TotalPrice   decimal.Decimal       `json:"total_price"`
	Status       model.BookingStatus   `json:"status"`
	Car          repository.CarSummary `json:"car"`
	Customer     customerPart          `json:"customer"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func toBookingResp(b model.Booking, car repository.CarSummary) bookingResp {
	return bookingResp{
		ID:           b.ID,
		CarID:        b.CarID,
		CustomerID:   b.CustomerID,
		CustomerName: b.CustomerName,
		StartDate:    b.StartDate.Format(booking.DayLayout),
		EndDate:      b.EndDate.Format(booking.DayLayout),
		TotalPrice:   b.TotalPrice,
		Status:       b.Status,
		Car:          car,
		Customer:     customerPart{ID: b.CustomerID, Name: b.CustomerName},
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func summarize(c model.Car) repository.CarSummary {
	return repository.CarSummary{
		ID:          c.ID,
		Make:        c.Make,
		Model:       c.Model,
		Image:       c.Image,
		Category:    c.Category,
		PricePerDay: c.PricePerDay,
	}
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	who, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	var req createBookingReq
	if handled, err := bindValid(c, &req); handled {
		return err
	}
	res, err := h.Allocator.RequestReservation(c.Request().Context(), req.CarID, who, req.StartDate, req.EndDate)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(res.Booking, summarize(res.Car)))
}

// UpdateStatus handles PATCH /v1/bookings/:id/status (admin only).
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	who, _ := middleware.Actor(c)
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id", "code": "INVALID_ID"})
	}
	var req statusReq
	if handled, err := bindValid(c, &req); handled {
		return err
	}
	to := model.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	res, err := h.Allocator.TransitionStatus(c.Request().Context(), id, to, who)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(res.Booking, summarize(res.Car)))
}

// List handles GET /v1/bookings: admins see every booking, customers their
// own.
func (h *BookingHandler) List(c echo.Context) error {
	who, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	var customerID uint64
	if who.Role != model.RoleAdmin {
		customerID = who.UserID
	}
	rows, err := h.Bookings.List(c.Request().Context(), customerID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingResp, 0, len(rows))
	for _, d := range rows {
		out = append(out, toBookingResp(d.Booking, d.Car))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/bookings/:id.  Customers may only read their own.
func (h *BookingHandler) Get(c echo.Context) error {
	who, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id", "code": "INVALID_ID"})
	}
	d, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if who.Role != model.RoleAdmin && d.CustomerID != who.UserID {
		return writeError(c, repository.ErrForbidden)
	}
	return c.JSON(http.StatusOK, toBookingResp(d.Booking, d.Car))
}
