package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/coursegate/internal/database"
)

func TestHealthReportsDatabaseState(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping DB-backed test")
	}
	db, err := database.NewDB(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	s := NewServer(0, db, nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health with live database returned %d", rec.Code)
	}

	db.Close()
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health with closed database returned %d, want %d",
			rec.Code, http.StatusServiceUnavailable)
	}
}
