package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/middleware"
	"github.com/Felicien407/car-rental-system/internal/model"
	"github.com/Felicien407/car-rental-system/internal/repository"
)

// CarCatalog is the car persistence the handler needs; *repository.CarRepo
// implements it.
type CarCatalog interface {
	List(ctx context.Context, f repository.CarFilter) ([]model.Car, error)
	GetByID(ctx context.Context, id uint64) (model.Car, error)
	Create(ctx context.Context, c *model.Car) error
	Stats(ctx context.Context) (repository.CarStats, error)
}

// CachePurger drops cached catalog responses after an edit.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// CarHandler serves the catalog and the admin fleet endpoints.  Status
// changes and deletions go through the allocator so they respect active
// bookings.
type CarHandler struct {
	Cars      CarCatalog
	Allocator *booking.Allocator
	Cache     CachePurger
}

func NewCarHandler(cars CarCatalog, a *booking.Allocator, cache CachePurger) *CarHandler {
	if cars == nil || a == nil {
		panic("nil dependency passed to NewCarHandler")
	}
	return &CarHandler{Cars: cars, Allocator: a, Cache: cache}
}

type carReq struct {
	Make         string          `json:"make" validate:"required,max=60"`
	Model        string          `json:"model" validate:"required,max=60"`
	Year         int             `json:"year" validate:"required,gte=1990"`
	Category     string          `json:"category" validate:"required,oneof=Sedan SUV Sports Electric Truck Van"`
	PricePerDay  decimal.Decimal `json:"price_per_day"`
	Status       string          `json:"status" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE RESERVED"`
	Rating       *float64        `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Mileage      int             `json:"mileage" validate:"gte=0"`
	Seats        int             `json:"seats" validate:"omitempty,gte=1,lte=15"`
	Transmission string          `json:"transmission" validate:"omitempty,oneof=Automatic Manual"`
	Image        string          `json:"image" validate:"omitempty,url,max=512"`
}

// check covers what struct tags cannot express.
func (r carReq) check() string {
	if !r.PricePerDay.IsPositive() {
		return "price_per_day must be positive"
	}
	if !r.PricePerDay.Equal(r.PricePerDay.Round(2)) {
		return "price_per_day has at most two decimals"
	}
	if latest := time.Now().UTC().Year() + 1; r.Year > latest {
		return "year must not be after next year"
	}
	return ""
}

func (r carReq) apply(c *model.Car) {
	c.Make = strings.TrimSpace(r.Make)
	c.Model = strings.TrimSpace(r.Model)
	c.Year = r.Year
	c.Category = r.Category
	c.PricePerDay = r.PricePerDay
	c.Mileage = r.Mileage
	if r.Rating != nil {
		c.Rating = *r.Rating
	}
	if r.Seats != 0 {
		c.Seats = r.Seats
	}
	if r.Transmission != "" {
		c.Transmission = r.Transmission
	}
	if r.Image != "" {
		c.Image = r.Image
	}
}

func (h *CarHandler) bindCar(c echo.Context) (carReq, bool, error) {
	var req carReq
	if handled, err := bindValid(c, &req); handled {
		return req, false, err
	}
	if msg := req.check(); msg != "" {
		return req, false, c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "VALIDATION_FAILED"})
	}
	return req, true, nil
}

func (h *CarHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx); err != nil {
		log.Warnf("cars: cache purge failed: %v", err)
	}
}

// List handles GET /v1/cars?category=&status=&search=.
func (h *CarHandler) List(c echo.Context) error {
	f := repository.CarFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Status:   model.CarStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))),
		Search:   c.QueryParam("search"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status " + string(f.Status), "code": "VALIDATION_FAILED"})
	}
	cars, err := h.Cars.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cars)
}

// Get handles GET /v1/cars/:id.
func (h *CarHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid car id", "code": "INVALID_ID"})
	}
	car, err := h.Cars.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, car)
}

// Stats handles GET /v1/cars/stats (admin only).
func (h *CarHandler) Stats(c echo.Context) error {
	s, err := h.Cars.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create handles POST /v1/cars (admin only).  A new car starts AVAILABLE
// unless UNAVAILABLE is requested.
func (h *CarHandler) Create(c echo.Context) error {
	req, ok, err := h.bindCar(c)
	if !ok {
		return err
	}
	car := model.Car{
		Status:       model.CarAvailable,
		Rating:       4.5,
		Seats:        5,
		Transmission: "Automatic",
		Image:        model.DefaultCarImage,
	}
	switch model.CarStatus(req.Status) {
	case model.CarUnavailable:
		car.Status = model.CarUnavailable
	case model.CarReserved:
		return writeError(c, booking.ErrInvalidTransition)
	}
	req.apply(&car)

	ctx := c.Request().Context()
	if err := h.Cars.Create(ctx, &car); err != nil {
		return writeError(c, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, car)
}

// Update handles PUT /v1/cars/:id (admin only).  Catalog fields and an
// optional status change are committed together by the allocator.
func (h *CarHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid car id", "code": "INVALID_ID"})
	}
	req, ok, err := h.bindCar(c)
	if !ok {
		return err
	}
	ctx := c.Request().Context()
	car, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	var status model.CarStatus
	if st := model.CarStatus(req.Status); st != car.Status {
		status = st
	}
	req.apply(&car)
	who, _ := middleware.Actor(c)
	updated, err := h.Allocator.UpdateCar(ctx, car, status, who)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/cars/:id (admin only).
func (h *CarHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid car id", "code": "INVALID_ID"})
	}
	who, _ := middleware.Actor(c)
	if err := h.Allocator.RemoveCar(c.Request().Context(), id, who); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
