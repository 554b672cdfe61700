package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsMalformedDSN(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: "://missing-scheme"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "db: parse dsn")
}
