package handlers

import (
	"context"
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/polaris-starter/backend/internal/api/middleware"
	"github.com/polaris-starter/backend/internal/auth"
	"github.com/polaris-starter/backend/internal/models"
	"github.com/polaris-starter/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// testEnv wires the full handler stack against in-memory stores
type testEnv struct {
	db       *gorm.DB
	redis    *redis.Client
	miniRed  *miniredis.Miniredis
	mailer   *captureMailer
	sessions *auth.Sessions
	hub      *services.ChangeHub
	profiles *services.ProfileService
	users    *services.UserService
	auth     *services.AuthService
}

// captureMailer records the last code instead of sending email
type captureMailer struct {
	email string
	code  string
}

func (m *captureMailer) SendMagicCode(_ context.Context, email, code string) error {
	m.email = email
	m.code = code
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.UserProfile{}, &models.File{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	env := &testEnv{
		db:       db,
		redis:    rdb,
		miniRed:  mr,
		mailer:   &captureMailer{},
		sessions: auth.NewSessions("test-secret", time.Hour, rdb),
	}
	env.hub = services.NewChangeHub(rdb)
	env.profiles = services.NewProfileService(db, env.hub)
	env.users = services.NewUserService(db, rdb)
	codes := auth.NewCodeStore(rdb, time.Minute)
	env.auth = services.NewAuthService(db, codes, env.sessions, env.mailer, env.profiles, env.hub)

	return env
}

func (env *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	user := &models.User{Email: &email}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (env *testEnv) createUserWithID(t *testing.T, id uuid.UUID, email string) *models.User {
	t.Helper()

	user := &models.User{ID: id, Email: &email}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// startApp serves a fiber app on an ephemeral port and returns its base URL.
// The middleware package holds the auth config globally, so each test sets
// it right before starting its app.
func startApp(t *testing.T, env *testEnv, bypass bool, register func(app *fiber.App)) string {
	t.Helper()

	middleware.InitAuthMiddleware(env.sessions, bypass)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	register(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String()
}
