package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/monitoringhub/auth-service/internal/models"
)

func setupAuthLogPostgresContainer(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}

	container, err := tc.GenericContainer(context.Background(), tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	assert.NoError(t, err)

	host, _ := container.Host(context.Background())
	port, _ := container.MappedPort(context.Background(), "5432")

	dsn := fmt.Sprintf("postgres://postgres:password@%s:%d/testdb?sslmode=disable", host, port.Int())

	var db *sqlx.DB
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	assert.NoError(t, err)

	schema := `
	CREATE TABLE IF NOT EXISTS auth_logs (
		id         BIGSERIAL PRIMARY KEY,
		username   VARCHAR(80),
		action     VARCHAR(20)  NOT NULL,
		success    BOOLEAN      NOT NULL,
		ip_address VARCHAR(45)  NOT NULL DEFAULT '',
		user_agent VARCHAR(256) NOT NULL DEFAULT '',
		timestamp  TIMESTAMPTZ  NOT NULL DEFAULT now()
	);
	`
	_, err = db.Exec(schema)
	assert.NoError(t, err)

	teardown := func() {
		db.Close()
		container.Terminate(context.Background())
	}

	return db, teardown
}

func TestAuthLogWriteRepository_Save(t *testing.T) {
	db, teardown := setupAuthLogPostgresContainer(t)
	defer teardown()

	repo := NewAuthLogWriteRepository(db)
	ctx := context.Background()

	username := "alice"
	entry := models.AuthLogDB{
		Username:  &username,
		Action:    models.ActionLogin,
		Success:   true,
		IPAddress: "203.0.113.7",
		UserAgent: "curl/8.0",
		Timestamp: time.Now().UTC(),
	}
	assert.NoError(t, repo.Save(ctx, entry))

	// Failed attempts for unknown usernames are recorded without one.
	anonymous := models.AuthLogDB{
		Username:  nil,
		Action:    models.ActionLoginFailed,
		Success:   false,
		IPAddress: "203.0.113.8",
		UserAgent: "curl/8.0",
		Timestamp: time.Now().UTC(),
	}
	assert.NoError(t, repo.Save(ctx, anonymous))

	var count int
	assert.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM auth_logs"))
	assert.Equal(t, 2, count)

	var got models.AuthLogDB
	assert.NoError(t, db.Get(&got, "SELECT id, username, action, success, ip_address, user_agent, timestamp FROM auth_logs WHERE action=$1", models.ActionLoginFailed))
	assert.Nil(t, got.Username)
	assert.False(t, got.Success)
}

func TestAuthLogReadRepository_ListRecent(t *testing.T) {
	db, teardown := setupAuthLogPostgresContainer(t)
	defer teardown()

	writeRepo := NewAuthLogWriteRepository(db)
	readRepo := NewAuthLogReadRepository(db)
	ctx := context.Background()

	username := "alice"
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := models.AuthLogDB{
			Username:  &username,
			Action:    models.ActionLogin,
			Success:   true,
			IPAddress: "203.0.113.7",
			UserAgent: "curl/8.0",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		assert.NoError(t, writeRepo.Save(ctx, entry))
	}

	t.Run("NewestFirst", func(t *testing.T) {
		entries, err := readRepo.ListRecent(ctx, 10)
		assert.NoError(t, err)
		assert.Len(t, entries, 5)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp))
		}
	})

	t.Run("LimitApplied", func(t *testing.T) {
		entries, err := readRepo.ListRecent(ctx, 2)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("NonPositiveLimitFallsBack", func(t *testing.T) {
		entries, err := readRepo.ListRecent(ctx, -1)
		assert.NoError(t, err)
		assert.Len(t, entries, 5)
	})
}
