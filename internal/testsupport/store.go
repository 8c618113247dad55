package testsupport

import (
	"testing"

	"punchlist/internal/config"
	"punchlist/internal/dashboard"
)

// MustOpenDashboard opens the dashboard store for the config, failing the
// test on error and closing the store at cleanup.
func MustOpenDashboard(t testing.TB, cfg *config.Config) *dashboard.Store {
	t.Helper()
	store, err := dashboard.Open(cfg.Paths.DashboardDB)
	if err != nil {
		t.Fatalf("open dashboard store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close dashboard store: %v", err)
		}
	})
	return store
}
