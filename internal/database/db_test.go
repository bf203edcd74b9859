package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN("rental", "s3cret", "db.local", "3307", "car_rental"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.User != "rental" || cfg.Passwd != "s3cret" || cfg.Addr != "db.local:3307" || cfg.DBName != "car_rental" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.ParseTime || cfg.Loc != time.UTC {
		t.Fatal("dates must parse as UTC time.Time")
	}
	if cfg.Params["innodb_lock_wait_timeout"] != "5" {
		t.Fatalf("params = %v", cfg.Params)
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN("root", "", "localhost", "3306", "car_rental"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Passwd != "" || cfg.User != "root" {
		t.Fatalf("unexpected auth %q:%q", cfg.User, cfg.Passwd)
	}
}
