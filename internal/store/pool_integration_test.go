// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/parleyhq/parley/internal/store"
)

var _ = Describe("OpenPool with migrated schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("parley_test"),
			postgres.WithUsername("parley"),
			postgres.WithPassword("parley"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.OpenPool(ctx, connStr, store.PoolOptions{})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	insertUser := func(username string) (string, error) {
		id := ulid.Make().String()
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, 'x')`, id, username)
		return id, err
	}

	uniqueViolation := func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
	}

	It("rejects duplicate usernames", func() {
		_, err := insertUser("alice")
		Expect(err).NotTo(HaveOccurred())

		_, err = insertUser("alice")
		Expect(uniqueViolation(err)).To(BeTrue())
	})

	It("rejects duplicate memberships", func() {
		userID, err := insertUser("bob")
		Expect(err).NotTo(HaveOccurred())
		roomPK := ulid.Make().String()
		_, err = pool.Exec(ctx, `INSERT INTO rooms (id, name, room_id) VALUES ($1, 'General', 'general')`, roomPK)
		Expect(err).NotTo(HaveOccurred())

		insert := `INSERT INTO memberships (id, user_id, room_id) VALUES ($1, $2, $3)`
		_, err = pool.Exec(ctx, insert, ulid.Make().String(), userID, roomPK)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, insert, ulid.Make().String(), userID, roomPK)
		Expect(uniqueViolation(err)).To(BeTrue())
	})

	It("enforces message foreign keys", func() {
		userID, err := insertUser("carol")
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx,
			`INSERT INTO messages (id, content, user_id, room_id) VALUES ($1, 'hi', $2, $3)`,
			ulid.Make().String(), userID, ulid.Make().String())
		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue())
		Expect(pgErr.Code).To(Equal(pgerrcode.ForeignKeyViolation))
	})
})
