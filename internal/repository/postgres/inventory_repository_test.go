package postgres

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
)

func TestTextArray(t *testing.T) {
	assert.Nil(t, textArray(nil))
	assert.Nil(t, textArray([]string{" ", ""}))

	arr, ok := textArray([]string{" 01", "02 "}).(*pq.StringArray)
	if assert.True(t, ok) {
		assert.Equal(t, pq.StringArray{"01", "02"}, *arr)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 5, 31, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), WindowStart(now, 4))
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), WindowStart(now, 0))
}

func TestConnString(t *testing.T) {
	got := connString(&config.DatabaseConfig{
		Host: "db", Port: "5432", User: "protheus", Password: "p@ss", DBName: "erp", SSLMode: "disable",
	})

	assert.Equal(t, "postgres://protheus:p%40ss@db:5432/erp?sslmode=disable", got)
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "protheus", (&Source{}).Name())
}
