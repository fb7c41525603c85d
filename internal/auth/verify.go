package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"campattend/internal/model"
	"campattend/internal/store"
)

// AdminID is the credential document id for the admin account.
const AdminID = "ADMIN"

// identifierDomain mirrors the synthetic mailbox the roster seeding assigns
// to every clinic id.
const identifierDomain = "@nurses-attendance.com"

var clinicIDPattern = regexp.MustCompile(`^[A-Z0-9]{3,16}$`)

// AttemptCounter tracks failed logins per identifier for the rate_limited
// verdict. Implementations decide the lockout window.
type AttemptCounter interface {
	Record(ctx context.Context, id string) error
	TooMany(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context, id string) error
}

// Verifier checks a clinic id and secret against stored credential documents.
// Failures map onto the auth error taxonomy and are never retried here.
type Verifier struct {
	docs     store.DocumentStore
	attempts AttemptCounter
}

// NewVerifier creates a verifier over the remote store.
func NewVerifier(docs store.DocumentStore, attempts AttemptCounter) *Verifier {
	return &Verifier{docs: docs, attempts: attempts}
}

type credential struct {
	PasswordHash string `json:"passwordHash"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// Verify authenticates an identifier and returns its role. The identifier is
// normalized to upper case; the "admin" alias maps to the admin credential.
func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	if strings.EqualFold(identifier, "admin") {
		id = AdminID
	}
	if !clinicIDPattern.MatchString(id) {
		return "", fmt.Errorf("%q: %w", identifier, model.ErrInvalidIdentifier)
	}

	if v.attempts != nil {
		locked, err := v.attempts.TooMany(ctx, id)
		if err != nil {
			return "", err
		}
		if locked {
			return "", fmt.Errorf("%s: %w", id, model.ErrRateLimited)
		}
	}

	fields, ok, err := v.docs.Get(ctx, "credentials", id)
	if err != nil {
		return "", err
	}
	if !ok {
		v.recordFailure(ctx, id)
		return "", fmt.Errorf("%s: %w", id, model.ErrUserNotFound)
	}
	var cred credential
	if err := store.FromFields(fields, &cred); err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(secret)) != nil {
		v.recordFailure(ctx, id)
		return "", fmt.Errorf("%s: %w", id, model.ErrInvalidCredential)
	}

	if v.attempts != nil {
		_ = v.attempts.Reset(ctx, id)
	}
	role := cred.Role
	if role == "" {
		role = model.RoleNurse
	}
	return role, nil
}

func (v *Verifier) recordFailure(ctx context.Context, id string) {
	if v.attempts != nil {
		_ = v.attempts.Record(ctx, id)
	}
}

// Email returns the synthetic mailbox for an identifier, as seeded.
func Email(clinicID string) string {
	return strings.ToLower(clinicID) + identifierDomain
}

// HashSecret produces the stored bcrypt hash for a secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RedisAttempts counts failures in Redis with a sliding lockout window.
type RedisAttempts struct {
	client  *redis.Client
	max     int
	lockout time.Duration
}

// NewRedisAttempts creates the counter; max failures within lockout trip it.
func NewRedisAttempts(client *redis.Client, max int, lockout time.Duration) *RedisAttempts {
	if max <= 0 {
		max = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &RedisAttempts{client: client, max: max, lockout: lockout}
}

func attemptsKey(id string) string {
	return "auth:attempts:" + id
}

// Record bumps the failure count and refreshes the window.
func (a *RedisAttempts) Record(ctx context.Context, id string) error {
	key := attemptsKey(id)
	if err := a.client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return a.client.Expire(ctx, key, a.lockout).Err()
}

// TooMany reports whether the identifier is locked out.
func (a *RedisAttempts) TooMany(ctx context.Context, id string) (bool, error) {
	n, err := a.client.Get(ctx, attemptsKey(id)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return n >= a.max, nil
}

// Reset clears the failure count after a successful login.
func (a *RedisAttempts) Reset(ctx context.Context, id string) error {
	return a.client.Del(ctx, attemptsKey(id)).Err()
}
