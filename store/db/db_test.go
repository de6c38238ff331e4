package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shopfloor/internal/profile"
	"github.com/hrygo/shopfloor/store/db/sqlite"
	"github.com/hrygo/shopfloor/store/db/supabase"
)

func TestNewDBDriver(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		driver, err := NewDBDriver(&profile.Profile{Driver: "sqlite", DSN: ":memory:"})
		require.NoError(t, err)
		defer driver.Close()
		assert.IsType(t, &sqlite.DB{}, driver)
	})

	t.Run("supabase", func(t *testing.T) {
		driver, err := NewDBDriver(&profile.Profile{Driver: "supabase", SupabaseURL: "http://127.0.0.1:1", SupabaseKey: "k"})
		require.NoError(t, err)
		assert.IsType(t, &supabase.DB{}, driver)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewDBDriver(&profile.Profile{Driver: "mysql"})
		assert.Error(t, err)
	})
}
