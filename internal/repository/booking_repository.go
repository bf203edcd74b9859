package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/model"
)

// BookingRepo reads and writes the bookings table.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.car_id, b.customer_id, b.customer_name, b.start_date, b.end_date,
       b.total_price, b.status, b.created_at, b.updated_at`

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.CarID, &b.CustomerID, &b.CustomerName, &b.StartDate, &b.EndDate,
		&b.TotalPrice, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CarSummary is the slice of a car shown next to a booking.  Deleted cars
// still resolve so history stays readable.
type CarSummary struct {
	ID          uint64          `json:"id"`
	Make        string          `json:"make"`
	Model       string          `json:"model"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
}

// BookingDetail is a booking joined with its car.
type BookingDetail struct {
	model.Booking
	Car CarSummary
}

const bookingDetailQuery = `SELECT ` + bookingColumns + `,
       c.id, c.make, c.model, c.image, c.category, c.price_per_day
FROM bookings b
JOIN cars c ON c.id = b.car_id`

func scanDetail(row rowScanner) (BookingDetail, error) {
	var d BookingDetail
	b := &d.Booking
	err := row.Scan(&b.ID, &b.CarID, &b.CustomerID, &b.CustomerName, &b.StartDate, &b.EndDate,
		&b.TotalPrice, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&d.Car.ID, &d.Car.Make, &d.Car.Model, &d.Car.Image, &d.Car.Category, &d.Car.PricePerDay)
	return d, err
}

// List returns bookings newest first.  A non-zero customerID restricts the
// result to that customer's bookings.
func (r *BookingRepo) List(ctx context.Context, customerID uint64) ([]BookingDetail, error) {
	q := bookingDetailQuery
	var args []any
	if customerID != 0 {
		q += ` WHERE b.customer_id = ?`
		args = append(args, customerID)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BookingDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID returns one booking with its car, or booking.ErrReservationNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (BookingDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, bookingDetailQuery+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return BookingDetail{}, fmt.Errorf("%w: booking %d", booking.ErrReservationNotFound, id)
	}
	return d, err
}

// CarIDOf resolves the car a booking belongs to.
func (r *BookingRepo) CarIDOf(ctx context.Context, id uint64) (uint64, error) {
	var carID uint64
	err := r.db.QueryRowContext(ctx, `SELECT car_id FROM bookings WHERE id = ?`, id).Scan(&carID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: booking %d", booking.ErrReservationNotFound, id)
	}
	return carID, err
}

// ActiveByCarTx lists ACTIVE bookings of a car ordered by start date.  The
// car row is already locked by the caller, so no new ACTIVE row can appear
// before tx ends.
func (r *BookingRepo) ActiveByCarTx(ctx context.Context, tx *sql.Tx, carID uint64) ([]model.Booking, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.car_id = ? AND b.status = ? ORDER BY b.start_date`,
		carID, model.BookingActive)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertTx stores b inside tx and fills in its ID and timestamps.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (car_id, customer_id, customer_name, start_date, end_date, total_price, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.CarID, b.CustomerID, b.CustomerName,
		b.StartDate.Format(booking.DayLayout), b.EndDate.Format(booking.DayLayout), b.TotalPrice, b.Status)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// read back the server timestamps
	return tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// LockTx loads a booking and holds its row lock until tx ends.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("%w: booking %d", booking.ErrReservationNotFound, id)
	}
	return b, translate(err)
}

// SetStatusTx writes a booking's status.
func (r *BookingRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	return translate(err)
}
