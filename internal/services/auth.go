package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/semaphore"

	"github.com/monitoringhub/auth-service/internal/logger"
	"github.com/monitoringhub/auth-service/internal/models"
	"github.com/monitoringhub/auth-service/internal/repositories"
)

// Error variables. ErrInvalidCredentials and ErrInactiveAccount are
// distinguished internally for auditing but must be surfaced to clients
// identically, so login responses never reveal whether a username exists
// or an account was deactivated.
var (
	ErrUserAlreadyExists  = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactiveAccount    = errors.New("account is deactivated")
	ErrValidation         = errors.New("missing or invalid request fields")
)

// auditTimeout bounds the detached fire-and-forget audit write.
const auditTimeout = 5 * time.Second

// DefaultHashWorkers bounds concurrent password derivations when no
// explicit limit is configured.
const DefaultHashWorkers = 4

// UserReader defines read-only operations for users.
type UserReader interface {
	GetByUsername(ctx context.Context, username string) (*models.UserDB, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.UserDB, error)
	Exists(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]models.UserInfo, error)
}

// UserWriter defines write operations for users.
type UserWriter interface {
	Save(ctx context.Context, user models.UserDB) error
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// AuthLogWriter appends audit records of authentication attempts.
type AuthLogWriter interface {
	Save(ctx context.Context, entry models.AuthLogDB) error
}

// AuthLogReader queries the audit ledger.
type AuthLogReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.AuthLogDB, error)
}

// PasswordHasher derives and verifies salted password digests.
type PasswordHasher interface {
	Hash(password string) (digest, salt string, err error)
	Compare(password, digest, salt string) bool
}

// TokenIssuer generates signed identity tokens.
type TokenIssuer interface {
	Generate(ctx context.Context, user models.AuthUser) (string, error)
}

// TokenRevoker invalidates previously issued tokens for a user.
type TokenRevoker interface {
	Revoke(ctx context.Context, userID uuid.UUID, since time.Time) error
}

// KafkaWriter defines a Kafka writer abstraction for auth event export.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuthService composes credential storage, hashing, token issuance and
// audit logging behind the register / login / admin operations the HTTP
// layer calls.
type AuthService struct {
	reader      UserReader
	writer      UserWriter
	auditWriter AuthLogWriter
	auditReader AuthLogReader
	hasher      PasswordHasher
	tokens      TokenIssuer
	revoker     TokenRevoker // optional
	kafkaWriter KafkaWriter  // optional

	// hashSem bounds concurrent password derivations so a burst of login
	// attempts cannot starve unrelated traffic of CPU.
	hashSem *semaphore.Weighted

	// audits tracks in-flight fire-and-forget audit writes.
	// WaitAudits is for tests and shutdown; request paths never wait.
	audits sync.WaitGroup
}

// NewAuthService creates a new AuthService instance. revoker and
// kafkaWriter may be nil; the corresponding features are then disabled.
func NewAuthService(
	reader UserReader,
	writer UserWriter,
	auditWriter AuthLogWriter,
	auditReader AuthLogReader,
	hasher PasswordHasher,
	tokens TokenIssuer,
	revoker TokenRevoker,
	kafkaWriter KafkaWriter,
	hashWorkers int,
) *AuthService {
	if hashWorkers <= 0 {
		hashWorkers = DefaultHashWorkers
	}
	return &AuthService{
		reader:      reader,
		writer:      writer,
		auditWriter: auditWriter,
		auditReader: auditReader,
		hasher:      hasher,
		tokens:      tokens,
		revoker:     revoker,
		kafkaWriter: kafkaWriter,
		hashSem:     semaphore.NewWeighted(int64(hashWorkers)),
	}
}

// Register creates a new user account. Registration is not an
// authentication attempt and is not audited.
func (svc *AuthService) Register(ctx context.Context, username, email, password, role string) error {
	if username == "" || email == "" || password == "" {
		return ErrValidation
	}
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return ErrValidation
	}

	existing, err := svc.reader.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		logger.Log.Errorw("failed to check user exists", "err", err)
		return err
	}
	if existing != nil {
		logger.Log.Infow("registration rejected, user already exists", "username", username)
		return ErrUserAlreadyExists
	}

	digest, salt, err := svc.deriveDigest(ctx, password)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "err", err)
		return err
	}

	user := models.UserDB{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Salt:         salt,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	if err := svc.writer.Save(ctx, user); err != nil {
		// Two concurrent registrations of the same username reach the
		// insert together; the unique constraint lets exactly one win.
		if errors.Is(err, repositories.ErrUniqueViolation) {
			logger.Log.Infow("registration lost uniqueness race", "username", username)
			return ErrUserAlreadyExists
		}
		logger.Log.Errorw("failed to save user", "err", err)
		return err
	}

	logger.Log.Infow("user registered", "username", username, "role", role)
	return nil
}

// Login authenticates a user and returns a signed token plus the public
// user projection. Every call, success or failure, produces exactly one
// audit entry.
func (svc *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) (string, models.AuthUser, error) {
	if username == "" || password == "" {
		return "", models.AuthUser{}, ErrValidation
	}

	user, err := svc.reader.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to get user", "err", err)
		return "", models.AuthUser{}, err
	}
	if user == nil {
		// Same error as a wrong password: do not leak username existence.
		svc.recordAuth(username, models.ActionLoginFailed, false, ip, userAgent)
		return "", models.AuthUser{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		svc.recordAuth(username, models.ActionLoginFailed, false, ip, userAgent)
		logger.Log.Infow("login rejected, account deactivated", "username", username)
		return "", models.AuthUser{}, ErrInactiveAccount
	}

	ok, err := svc.comparePassword(ctx, password, user.PasswordHash, user.Salt)
	if err != nil {
		return "", models.AuthUser{}, err
	}
	if !ok {
		svc.recordAuth(username, models.ActionLoginFailed, false, ip, userAgent)
		logger.Log.Infow("login rejected, invalid credentials", "username", username)
		return "", models.AuthUser{}, ErrInvalidCredentials
	}

	if err := svc.writer.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Non-fatal bookkeeping; the authentication itself succeeded.
		logger.Log.Errorw("failed to update last login", "username", username, "err", err)
	}

	svc.recordAuth(username, models.ActionLogin, true, ip, userAgent)

	authUser := models.AuthUser{ID: user.ID, Username: user.Username, Role: user.Role}
	token, err := svc.tokens.Generate(ctx, authUser)
	if err != nil {
		logger.Log.Errorw("failed to generate token", "err", err)
		return "", models.AuthUser{}, err
	}

	logger.Log.Infow("user logged in", "username", username)
	return token, authUser, nil
}

// Logout records the logout and revokes the user's outstanding tokens.
// Without a configured revoker the audit entry is still written and
// earlier tokens simply age out at their natural expiry.
func (svc *AuthService) Logout(ctx context.Context, user models.AuthUser, ip, userAgent string) error {
	if svc.revoker != nil {
		if err := svc.revoker.Revoke(ctx, user.ID, time.Now()); err != nil {
			logger.Log.Errorw("failed to revoke tokens", "username", user.Username, "err", err)
			return err
		}
	}

	svc.recordAuth(user.Username, models.ActionLogout, true, ip, userAgent)
	logger.Log.Infow("user logged out", "username", user.Username)
	return nil
}

// ListUsers returns the administrative user listing.
func (svc *AuthService) ListUsers(ctx context.Context) ([]models.UserInfo, error) {
	users, err := svc.reader.List(ctx)
	if err != nil {
		logger.Log.Errorw("failed to list users", "err", err)
		return nil, err
	}
	return users, nil
}

// ListAuthLogs returns up to limit audit entries, newest first.
func (svc *AuthService) ListAuthLogs(ctx context.Context, limit int) ([]models.AuthLogDB, error) {
	entries, err := svc.auditReader.ListRecent(ctx, limit)
	if err != nil {
		logger.Log.Errorw("failed to list auth logs", "err", err)
		return nil, err
	}
	return entries, nil
}

// EnsureDefaultAdmin creates the default administrator account if no user
// with the given username exists. Idempotent: subsequent startups neither
// re-create nor reset the account.
func (svc *AuthService) EnsureDefaultAdmin(ctx context.Context, username, email, password string) error {
	exists, err := svc.reader.Exists(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to check default admin", "err", err)
		return err
	}
	if exists {
		return nil
	}

	if err := svc.Register(ctx, username, email, password, models.RoleAdmin); err != nil {
		// A concurrent instance may have bootstrapped between the check
		// and the insert; that still satisfies idempotency.
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil
		}
		return err
	}

	logger.Log.Infow("default administrator created", "username", username)
	return nil
}

// WaitAudits blocks until all in-flight audit writes have finished.
// Called on shutdown and from tests; never from a request path.
func (svc *AuthService) WaitAudits() {
	svc.audits.Wait()
}

// recordAuth appends one audit entry and publishes the matching event,
// fire-and-forget. Failures are captured internally and never abort the
// authentication operation that triggered them.
func (svc *AuthService) recordAuth(username, action string, success bool, ip, userAgent string) {
	var name *string
	if username != "" {
		name = &username
	}
	entry := models.AuthLogDB{
		Username:  name,
		Action:    action,
		Success:   success,
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}

	svc.audits.Add(1)
	go func() {
		defer svc.audits.Done()

		// Detached from the request context: a canceled request must not
		// lose its audit record.
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()

		if err := svc.auditWriter.Save(ctx, entry); err != nil {
			logger.Log.Errorw("audit write failed",
				"action", entry.Action,
				"success", entry.Success,
				"err", err,
			)
		}

		svc.publishAuthEvent(ctx, entry)
	}()
}

// publishAuthEvent exports the audit record to Kafka, best-effort.
func (svc *AuthService) publishAuthEvent(ctx context.Context, entry models.AuthLogDB) {
	if svc.kafkaWriter == nil {
		return
	}

	event := models.AuthEvent{
		Username:  entry.Username,
		Action:    entry.Action,
		Success:   entry.Success,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		Timestamp: entry.Timestamp,
	}

	value, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("failed to marshal auth event", "err", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(entry.Action),
		Value: value,
	}
	if err := svc.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("failed to publish auth event", "action", entry.Action, "err", err)
	}
}

// deriveDigest runs the CPU-intensive key derivation under the bounded
// worker semaphore.
func (svc *AuthService) deriveDigest(ctx context.Context, password string) (digest, salt string, err error) {
	if err := svc.hashSem.Acquire(ctx, 1); err != nil {
		return "", "", err
	}
	defer svc.hashSem.Release(1)
	return svc.hasher.Hash(password)
}

// comparePassword runs password verification under the same semaphore as
// derivation; it is equally CPU-bound.
func (svc *AuthService) comparePassword(ctx context.Context, password, digest, salt string) (bool, error) {
	if err := svc.hashSem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer svc.hashSem.Release(1)
	return svc.hasher.Compare(password, digest, salt), nil
}
