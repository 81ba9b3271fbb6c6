package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	mw "github.com/parleyhq/chat-backend/internal/adapters/primary/http/middleware"
	"github.com/parleyhq/chat-backend/internal/adapters/primary/websocket"
	pgadapter "github.com/parleyhq/chat-backend/internal/adapters/secondary/postgres"
	"github.com/parleyhq/chat-backend/internal/core/services"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgcontainer.WithDatabase("test-db"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("could not get connection string: %v", err)
	}

	migrationsPath, err := filepath.Abs("../../../../migrations")
	if err != nil {
		log.Fatalf("could not find migrations directory: %v", err)
	}

	mig, err := migrate.New("file://"+migrationsPath, connStr)
	if err != nil {
		log.Fatalf("could not create migrate instance: %v", err)
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("could not run migrations: %v", err)
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not create connection pool: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Fatalf("could not terminate postgres container: %v", err)
	}

	os.Exit(code)
}

// newTestRouter wires the full API against the shared test database. The
// hub run loop is real so fan-out side effects cannot panic the handlers.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	userRepo := pgadapter.NewUserRepository(testPool)
	sessionRepo := pgadapter.NewSessionRepository(testPool)
	roomRepo := pgadapter.NewRoomRepository(testPool)
	membershipRepo := pgadapter.NewMembershipRepository(testPool)
	messageRepo := pgadapter.NewMessageRepository(testPool)
	reactionRepo := pgadapter.NewReactionRepository(testPool)
	txManager := pgadapter.NewTransactionManager(testPool)

	hub := websocket.NewHub(logger)

	authService := services.NewAuthService(userRepo, sessionRepo, time.Hour)
	membershipService := services.NewMembershipService(membershipRepo, roomRepo, hub)
	roomService := services.NewRoomService(roomRepo, membershipRepo, txManager)
	messageService := services.NewMessageService(messageRepo, roomRepo, membershipService, hub)
	reactionService := services.NewReactionService(reactionRepo, messageRepo, roomRepo, membershipService, hub)
	userService := services.NewUserService(userRepo)

	hub.SetAuthorizer(services.NewChannelAuthorizer(membershipService))
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	authHandler := NewAuthHandler(authService, errorHandler, logger)
	userHandler := NewUserHandler(userService, errorHandler, logger)
	memberHandler := NewMemberHandler(membershipService, errorHandler, logger)
	reactionHandler := NewReactionHandler(reactionService, errorHandler, logger)
	messageHandler := NewMessageHandler(messageService, reactionHandler, errorHandler, logger)
	roomHandler := NewRoomHandler(roomService, memberHandler, messageHandler, errorHandler, logger)

	router := chi.NewRouter()
	router.Route("/auth", authHandler.RegisterPublicRoutes)
	router.Group(func(r chi.Router) {
		r.Use(mw.SessionAuth(authService))
		r.Route("/auth", authHandler.RegisterProtectedRoutes)
		r.Route("/users", userHandler.RegisterRoutes)
		r.Route("/rooms", roomHandler.RegisterRoutes)
		r.Route("/messages", messageHandler.RegisterRoutes)
		r.Route("/reactions", reactionHandler.RegisterRoutes)
	})

	return router
}

// doJSON issues a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, router *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

// registerTestAccount registers a fresh account and returns its token and
// user representation.
func registerTestAccount(t *testing.T, router *chi.Mux) (string, UserDTO) {
	t.Helper()

	recorder := doJSON(t, router, stdhttp.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "user-" + uuid.NewString(),
		Password: "correct-horse-7",
	})
	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	response := decodeBody[AuthResponse](t, recorder)
	require.NotEmpty(t, response.Session.Token)
	require.NotNil(t, response.User)
	return response.Session.Token, *response.User
}
