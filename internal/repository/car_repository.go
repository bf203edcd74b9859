package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/model"
)

// CarRepo reads and writes the cars table.  Soft-deleted rows are invisible
// to every query here.
type CarRepo struct {
	db *sql.DB
}

// NewCarRepo returns a CarRepo bound to db.
func NewCarRepo(db *sql.DB) *CarRepo { return &CarRepo{db: db} }

const carColumns = `id, make, model, year, category, price_per_day, status, rating,
       mileage, seats, transmission, image, deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(row rowScanner) (model.Car, error) {
	var (
		c       model.Car
		deleted sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Make, &c.Model, &c.Year, &c.Category, &c.PricePerDay, &c.Status, &c.Rating,
		&c.Mileage, &c.Seats, &c.Transmission, &c.Image, &deleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Car{}, err
	}
	if deleted.Valid {
		t := deleted.Time
		c.DeletedAt = &t
	}
	return c, nil
}

// CarFilter narrows List.  Empty fields match everything.
type CarFilter struct {
	Category string
	Status   model.CarStatus
	Search   string // matched against make and model
}

// List returns the catalog, newest first.
func (r *CarRepo) List(ctx context.Context, f CarFilter) ([]model.Car, error) {
	q := `SELECT ` + carColumns + ` FROM cars WHERE deleted_at IS NULL`
	var args []any
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q += ` AND (make LIKE ? OR model LIKE ?)`
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cars := []model.Car{}
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// GetByID returns one car or booking.ErrResourceNotFound.
func (r *CarRepo) GetByID(ctx context.Context, id uint64) (model.Car, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars WHERE id = ? AND deleted_at IS NULL`, id)
	c, err := scanCar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Car{}, fmt.Errorf("%w: car %d", booking.ErrResourceNotFound, id)
	}
	return c, err
}

// FindByMakeModel returns the oldest live car with the given make and
// model.
func (r *CarRepo) FindByMakeModel(ctx context.Context, mk, mdl string) (model.Car, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+carColumns+` FROM cars WHERE make = ? AND model = ? AND deleted_at IS NULL ORDER BY id LIMIT 1`, mk, mdl)
	c, err := scanCar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Car{}, fmt.Errorf("%w: %s %s", booking.ErrResourceNotFound, mk, mdl)
	}
	return c, err
}

// Create inserts c and reloads it so defaults and timestamps are filled in.
func (r *CarRepo) Create(ctx context.Context, c *model.Car) error {
	const q = `INSERT INTO cars (make, model, year, category, price_per_day, status, rating, mileage, seats, transmission, image)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Make, c.Model, c.Year, c.Category, c.PricePerDay, c.Status,
		c.Rating, c.Mileage, c.Seats, c.Transmission, c.Image)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = saved
	return nil
}

// UpdateDetailsTx rewrites the catalog fields of a car.  Status is left
// alone; it only changes through the booking core.
func (r *CarRepo) UpdateDetailsTx(ctx context.Context, tx *sql.Tx, c model.Car) error {
	const q = `UPDATE cars SET make = ?, model = ?, year = ?, category = ?, price_per_day = ?, rating = ?,
                      mileage = ?, seats = ?, transmission = ?, image = ?
               WHERE id = ? AND deleted_at IS NULL`
	_, err := tx.ExecContext(ctx, q, c.Make, c.Model, c.Year, c.Category, c.PricePerDay, c.Rating,
		c.Mileage, c.Seats, c.Transmission, c.Image, c.ID)
	return translate(err)
}

// CarStats summarizes the fleet for the admin dashboard.
type CarStats struct {
	TotalCars     int `json:"totalCars"`
	Available     int `json:"available"`
	Reserved      int `json:"reserved"`
	Unavailable   int `json:"unavailable"`
	TotalBookings int `json:"totalBookings"`
}

// Stats counts cars per status and all bookings ever made.
func (r *CarRepo) Stats(ctx context.Context) (CarStats, error) {
	const q = `SELECT COUNT(*),
                      COALESCE(SUM(status = 'AVAILABLE'), 0),
                      COALESCE(SUM(status = 'RESERVED'), 0),
                      COALESCE(SUM(status = 'UNAVAILABLE'), 0)
               FROM cars WHERE deleted_at IS NULL`
	var s CarStats
	if err := r.db.QueryRowContext(ctx, q).Scan(&s.TotalCars, &s.Available, &s.Reserved, &s.Unavailable); err != nil {
		return CarStats{}, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&s.TotalBookings); err != nil {
		return CarStats{}, err
	}
	return s, nil
}

// LockTx loads a car and holds its row lock until tx ends.
func (r *CarRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Car, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars WHERE id = ? AND deleted_at IS NULL FOR UPDATE`, id)
	c, err := scanCar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Car{}, fmt.Errorf("%w: car %d", booking.ErrResourceNotFound, id)
	}
	return c, translate(err)
}

// SetStatusTx writes the status column.  Callers go through booking.Ledger.
func (r *CarRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.CarStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE cars SET status = ? WHERE id = ?`, status, id)
	return translate(err)
}

// SoftDeleteTx hides a car from the catalog while keeping its bookings.
func (r *CarRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE cars SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return translate(err)
}
