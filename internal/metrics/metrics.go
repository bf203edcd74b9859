package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Felicien407/car-rental-system/internal/booking"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	BookingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "car_rental_booking_events_total",
			Help: "Booking decisions by event kind and rejection reason",
		},
		[]string{"kind", "reason"},
	)
	CarTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "car_rental_car_status_transitions_total",
			Help: "Car status changes committed by the availability ledger",
		},
		[]string{"from", "to"},
	)
)

// Events counts core events.  It implements booking.Publisher and never
// fails.
type Events struct{}

func (Events) Publish(_ context.Context, ev booking.Event) error {
	switch ev.Kind {
	case booking.EventCarStatusChanged:
		CarTransitions.WithLabelValues(ev.From, ev.To).Inc()
	case booking.EventBookingRejected:
		BookingEvents.WithLabelValues(string(ev.Kind), ev.Reason).Inc()
	default:
		BookingEvents.WithLabelValues(string(ev.Kind), "").Inc()
	}
	return nil
}

// Middleware records request count and latency per route template, so
// /v1/cars/1 and /v1/cars/2 share one series.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().URL.Path == "/metrics" {
			return next(c)
		}
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if !c.Response().Committed {
				status = http.StatusInternalServerError
			}
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		RequestTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
