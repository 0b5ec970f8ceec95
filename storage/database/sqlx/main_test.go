package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core/user"
	"github.com/meryambn/mimiScaleUp-sub005/storage/database"
)

// prepareDB connects to TEST_DATABASE_URL, migrates it and empties every table.
// Tests are skipped when the variable is not set.
func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec(`TRUNCATE criteresdevaluation, livrables, tache, reunion, messages, notifications,
		phase_historique, candidature_membre, candidature, phase, programme, utilisateur RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{Name: name, Email: email, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, usr.SetPassword("Pwd123!$"))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}
