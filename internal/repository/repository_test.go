package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/locker"
	"github.com/Felicien407/car-rental-system/internal/model"
)

var (
	carCols     = []string{"id", "make", "model", "year", "category", "price_per_day", "status", "rating", "mileage", "seats", "transmission", "image", "deleted_at", "created_at", "updated_at"}
	bookingCols = []string{"id", "car_id", "customer_id", "customer_name", "start_date", "end_date", "total_price", "status", "created_at", "updated_at"}
	stamp       = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func carRow(id uint64, status model.CarStatus) *sqlmock.Rows {
	return sqlmock.NewRows(carCols).AddRow(id, "BMW", "X5", 2023, "SUV", "150.00", string(status), 4.8,
		12000, 5, "Automatic", "x5.jpg", nil, stamp, stamp)
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

var (
	lockCarSQL   = regexp.QuoteMeta(`FROM cars WHERE id = ? AND deleted_at IS NULL FOR UPDATE`)
	activeSQL    = regexp.QuoteMeta(`FROM bookings b WHERE b.car_id = ? AND b.status = ?`)
	insertSQL    = regexp.QuoteMeta(`INSERT INTO bookings`)
	stampsSQL    = regexp.QuoteMeta(`SELECT created_at, updated_at FROM bookings WHERE id = ?`)
	carStatusSQL = regexp.QuoteMeta(`UPDATE cars SET status = ? WHERE id = ?`)
)

func TestStoreReservationCommitsAtomically(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, NewCarRepo(db), NewBookingRepo(db))
	alloc := booking.NewAllocator(store, locker.NewLocal(time.Second), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(lockCarSQL).WithArgs(7).WillReturnRows(carRow(7, model.CarAvailable))
	mock.ExpectQuery(activeSQL).WithArgs(7, "ACTIVE").WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(insertSQL).
		WithArgs(7, 2, "Alice Johnson", "2025-02-10", "2025-02-15", sqlmock.AnyArg(), "ACTIVE").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery(stampsSQL).WithArgs(41).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	// ledger re-reads the row and the active set before writing RESERVED
	mock.ExpectQuery(lockCarSQL).WithArgs(7).WillReturnRows(carRow(7, model.CarAvailable))
	mock.ExpectQuery(activeSQL).WithArgs(7, "ACTIVE").WillReturnRows(sqlmock.NewRows(bookingCols).
		AddRow(41, 7, 2, "Alice Johnson", day("2025-02-10"), day("2025-02-15"), "750.00", "ACTIVE", stamp, stamp))
	mock.ExpectExec(carStatusSQL).WithArgs("RESERVED", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	who := booking.Actor{UserID: 2, Name: "Alice Johnson", Role: model.RoleCustomer}
	res, err := alloc.RequestReservation(context.Background(), 7, who, "2025-02-10", "2025-02-15")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.ID != 41 || res.Car.Status != model.CarReserved || !res.TotalPrice.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unexpected reservation %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreRollsBackOnConflict(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, NewCarRepo(db), NewBookingRepo(db))
	alloc := booking.NewAllocator(store, locker.NewLocal(time.Second), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(lockCarSQL).WithArgs(7).WillReturnRows(carRow(7, model.CarReserved))
	mock.ExpectQuery(activeSQL).WithArgs(7, "ACTIVE").WillReturnRows(sqlmock.NewRows(bookingCols).
		AddRow(41, 7, 2, "Alice Johnson", day("2025-02-10"), day("2025-02-15"), "750.00", "ACTIVE", stamp, stamp))
	mock.ExpectRollback()

	who := booking.Actor{UserID: 3, Name: "Bob Smith", Role: model.RoleCustomer}
	_, err := alloc.RequestReservation(context.Background(), 7, who, "2025-02-12", "2025-02-18")
	if !errors.Is(err, booking.ErrConflictingReservation) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreTranslatesDeadlock(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, NewCarRepo(db), NewBookingRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(lockCarSQL).WithArgs(7).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx booking.Tx) error {
		_, err := tx.LockCar(context.Background(), 7)
		return err
	})
	if !errors.Is(err, booking.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreUpdateCarRollsBackStatus(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, NewCarRepo(db), NewBookingRepo(db))
	alloc := booking.NewAllocator(store, locker.NewLocal(time.Second), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(lockCarSQL).WithArgs(7).WillReturnRows(carRow(7, model.CarAvailable))
	mock.ExpectQuery(lockCarSQL).WithArgs(7).WillReturnRows(carRow(7, model.CarAvailable))
	mock.ExpectQuery(activeSQL).WithArgs(7, "ACTIVE").WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(carStatusSQL).WithArgs("UNAVAILABLE", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cars SET make = ?, model = ?`)).
		WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	mock.ExpectRollback()

	c := model.Car{ID: 7, Make: "BMW", Model: "X5 M", Year: 2024, Category: "SUV", PricePerDay: decimal.NewFromInt(180)}
	_, err := alloc.UpdateCar(context.Background(), c, model.CarUnavailable, booking.Actor{UserID: 1, Role: model.RoleAdmin})
	if !errors.Is(err, booking.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFindByMakeModel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCarRepo(db)
	findSQL := regexp.QuoteMeta(`FROM cars WHERE make = ? AND model = ? AND deleted_at IS NULL ORDER BY id LIMIT 1`)

	mock.ExpectQuery(findSQL).WithArgs("BMW", "X5").WillReturnRows(carRow(3, model.CarAvailable))
	mock.ExpectQuery(findSQL).WithArgs("Fiat", "Panda").WillReturnRows(sqlmock.NewRows(carCols))

	c, err := repo.FindByMakeModel(context.Background(), "BMW", "X5")
	if err != nil || c.ID != 3 {
		t.Fatalf("got %+v, %v", c, err)
	}
	if _, err := repo.FindByMakeModel(context.Background(), "Fiat", "Panda"); !errors.Is(err, booking.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestLockCarNotFound(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, NewCarRepo(db), NewBookingRepo(db))

	mock.ExpectBegin()
	mock.ExpectQuery(lockCarSQL).WithArgs(99).WillReturnRows(sqlmock.NewRows(carCols))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx booking.Tx) error {
		_, err := tx.LockCar(context.Background(), 99)
		return err
	})
	if !errors.Is(err, booking.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestCarIDForBookingNotFound(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, NewCarRepo(db), NewBookingRepo(db))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT car_id FROM bookings WHERE id = ?`)).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"car_id"}))

	if _, err := store.CarIDForBooking(context.Background(), 5); !errors.Is(err, booking.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestCarListFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCarRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE deleted_at IS NULL AND category = ? AND status = ? AND (make LIKE ? OR model LIKE ?) ORDER BY created_at DESC, id DESC`)).
		WithArgs("SUV", "AVAILABLE", "%bmw%", "%bmw%").
		WillReturnRows(carRow(7, model.CarAvailable))

	cars, err := repo.List(context.Background(), CarFilter{Category: "SUV", Status: model.CarAvailable, Search: " bmw "})
	if err != nil {
		t.Fatal(err)
	}
	if len(cars) != 1 || cars[0].Make != "BMW" || !cars[0].PricePerDay.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected cars %+v", cars)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCarStats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM cars WHERE deleted_at IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "a", "r", "u"}).AddRow(6, 3, 2, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(9))

	s, err := NewCarRepo(db).Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := CarStats{TotalCars: 6, Available: 3, Reserved: 2, Unavailable: 1, TotalBookings: 9}
	if s != want {
		t.Fatalf("stats = %+v, want %+v", s, want)
	}
}

func TestBookingGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN cars c ON c.id = b.car_id WHERE b.id = ?`)).WithArgs(3).
		WillReturnError(sql.ErrNoRows)

	_, err := NewBookingRepo(db).GetByID(context.Background(), 3)
	if !errors.Is(err, booking.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("Alice", "alice@example.com", sqlmock.AnyArg(), model.RoleCustomer).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := NewUserRepo(db).Create(context.Background(), " Alice ", " Alice@Example.com", "secret1", model.RoleCustomer, 4)
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestTokenRotate(t *testing.T) {
	db, mock := newMock(t)
	exp := stamp.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM refresh_tokens WHERE token_hash=?`)).
		WithArgs("old", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=?`)).
		WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO refresh_tokens`)).
		WithArgs(2, "new", exp).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	uid, err := NewTokenRepo(db).Rotate(context.Background(), "old", "new", exp)
	if err != nil || uid != 2 {
		t.Fatalf("rotate = %d, %v", uid, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTokenRotateReusedToken(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM refresh_tokens`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	_, err := NewTokenRepo(db).Rotate(context.Background(), "old", "new", stamp)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
