// Command seed loads demo users, cars and bookings.  Bookings are made
// through the allocator so car statuses come out consistent.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/config"
	"github.com/Felicien407/car-rental-system/internal/database"
	"github.com/Felicien407/car-rental-system/internal/locker"
	"github.com/Felicien407/car-rental-system/internal/model"
	"github.com/Felicien407/car-rental-system/internal/repository"
)

type seedUser struct {
	name, email, password, role string
}

var users = []seedUser{
	{"Admin User", "admin@rentacar.com", "admin123", model.RoleAdmin},
	{"Alice Johnson", "alice@example.com", "alice123", model.RoleCustomer},
	{"Bob Smith", "bob@example.com", "bob123", model.RoleCustomer},
}

func car(mk, mdl string, year int, category string, price int64, status model.CarStatus,
	rating float64, mileage, seats int, transmission, image string) model.Car {
	return model.Car{
		Make: mk, Model: mdl, Year: year, Category: category,
		PricePerDay: decimal.NewFromInt(price), Status: status, Rating: rating,
		Mileage: mileage, Seats: seats, Transmission: transmission, Image: image,
	}
}

var cars = []model.Car{
	car("Tesla", "Model S", 2023, "Electric", 120, model.CarAvailable, 4.8, 12000, 5, "Automatic",
		"https://images.unsplash.com/photo-1617788138017-80ad40651399?w=600&q=80"),
	car("Lamborghini", "Huracán", 2022, "Sports", 450, model.CarAvailable, 4.9, 5000, 2, "Automatic",
		"https://images.unsplash.com/photo-1544636331-e26879cd4d9b?w=600&q=80"),
	car("BMW", "X5", 2023, "SUV", 150, model.CarAvailable, 4.7, 18000, 7, "Automatic",
		"https://images.unsplash.com/photo-1555215695-3004980ad54e?w=600&q=80"),
	car("Mercedes", "C-Class", 2022, "Sedan", 130, model.CarAvailable, 4.6, 22000, 5, "Automatic",
		model.DefaultCarImage),
	car("Porsche", "911", 2023, "Sports", 380, model.CarAvailable, 5.0, 3000, 4, "Manual",
		"https://images.unsplash.com/photo-1503376780353-7e6692767b70?w=600&q=80"),
	car("Ford", "Mustang", 2022, "Sports", 110, model.CarUnavailable, 4.5, 30000, 4, "Manual",
		"https://images.unsplash.com/photo-1584345604476-8ec5e8e9b0e8?w=600&q=80"),
}

func main() {
	reset := flag.Bool("reset", false, "delete all users, cars and bookings first")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database: %v", err)
	}
	if *reset {
		if err := wipe(ctx, db); err != nil {
			log.Fatalf("reset: %v", err)
		}
		log.Info("cleared existing data")
	}
	if err := seed(ctx, db, cfg); err != nil {
		log.Fatalf("seed: %v", err)
	}

	fmt.Println("Seed complete. Login credentials:")
	for _, u := range users {
		fmt.Printf("  %-8s -> %-20s / %s\n", u.role, u.email, u.password)
	}
}

func wipe(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"bookings", "refresh_tokens", "cars", "users"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func seed(ctx context.Context, db *sql.DB, cfg config.Config) error {
	userRepo := repository.NewUserRepo(db)
	ids := map[string]booking.Actor{}
	for _, u := range users {
		id, err := userRepo.Create(ctx, u.name, u.email, u.password, u.role, cfg.BcryptCost)
		if errors.Is(err, repository.ErrEmailExists) {
			existing, gerr := userRepo.GetByEmail(ctx, u.email)
			if gerr != nil {
				return gerr
			}
			id, err = existing.ID, nil
		}
		if err != nil {
			return fmt.Errorf("user %s: %w", u.email, err)
		}
		ids[u.email] = booking.Actor{UserID: id, Name: u.name, Role: u.role}
	}
	log.Infof("created %d users", len(users))

	carRepo := repository.NewCarRepo(db)
	byModel := map[string]uint64{}
	created := map[string]bool{}
	for _, c := range cars {
		c := c
		existing, err := carRepo.FindByMakeModel(ctx, c.Make, c.Model)
		switch {
		case err == nil:
			byModel[c.Model] = existing.ID
			continue
		case !errors.Is(err, booking.ErrResourceNotFound):
			return fmt.Errorf("car %s %s: %w", c.Make, c.Model, err)
		}
		if err := carRepo.Create(ctx, &c); err != nil {
			return fmt.Errorf("car %s %s: %w", c.Make, c.Model, err)
		}
		byModel[c.Model] = c.ID
		created[c.Model] = true
	}
	log.Infof("created %d cars, %d already present", len(created), len(cars)-len(created))

	alloc := booking.NewAllocator(
		repository.NewStore(db, carRepo, repository.NewBookingRepo(db)),
		locker.NewLocal(cfg.Lock.Wait), nil)
	alice, bob, admin := ids["alice@example.com"], ids["bob@example.com"], ids["admin@rentacar.com"]

	// Demo bookings only go on cars this run created; a rerun leaves
	// existing history alone.
	n := 0
	if created["X5"] {
		if _, err := alloc.RequestReservation(ctx, byModel["X5"], alice, "2025-02-10", "2025-02-15"); err != nil {
			return fmt.Errorf("alice books X5: %w", err)
		}
		n++
	}
	if created["Model S"] {
		res, err := alloc.RequestReservation(ctx, byModel["Model S"], bob, "2025-01-20", "2025-01-25")
		if err != nil {
			return fmt.Errorf("bob books Model S: %w", err)
		}
		if _, err := alloc.TransitionStatus(ctx, res.ID, model.BookingCompleted, admin); err != nil {
			return fmt.Errorf("complete bob's booking: %w", err)
		}
		n++
	}
	log.Infof("created %d bookings", n)
	return nil
}
