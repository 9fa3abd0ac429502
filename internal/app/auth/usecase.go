package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"planetbot/internal/app/ports"
)

var (
	ErrInvalidRequest     = errors.New("invalid auth request")
	ErrInvalidCredentials = errors.New("invalid account credentials")
)

// RegisterRequest stores the game login for a local username. Password is the
// local secret checked at login; HashPassword and UserID are what the game
// server expects.
type RegisterRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	UserID       string `json:"user_id"`
	HashPassword string `json:"hash_password"`
}

type RegisterResponse struct {
	Username     string `json:"username"`
	RegisteredAt string `json:"registered_at"`
}

type RegisterUseCase struct {
	Accounts  ports.AccountRepository
	TxManager ports.TxManager
	Now       func() time.Time
}

// LoginUseCase resolves a username/password pair to game credentials.
type LoginUseCase struct {
	Accounts ports.AccountRepository
}

var _ ports.Authenticator = LoginUseCase{}

func (u RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.UserID = strings.TrimSpace(req.UserID)
	req.HashPassword = strings.TrimSpace(req.HashPassword)
	if req.Username == "" || req.Password == "" || req.UserID == "" || req.HashPassword == "" {
		return RegisterResponse{}, ErrInvalidRequest
	}
	if u.Accounts == nil || u.TxManager == nil {
		return RegisterResponse{}, ErrInvalidRequest
	}
	nowFn := u.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().UTC()

	salt, err := randomBytes(16)
	if err != nil {
		return RegisterResponse{}, err
	}
	err = u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		return u.Accounts.Create(txCtx, ports.AccountRecord{
			Username:     req.Username,
			UserID:       req.UserID,
			HashPassword: req.HashPassword,
			PasswordSalt: salt,
			PasswordHash: passwordHash(salt, req.Password),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return RegisterResponse{}, err
	}
	return RegisterResponse{Username: req.Username, RegisteredAt: now.Format(time.RFC3339)}, nil
}

func (u LoginUseCase) Authenticate(ctx context.Context, username, password string) (ports.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || u.Accounts == nil {
		return ports.Account{}, ErrInvalidRequest
	}
	rec, err := u.Accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.Account{}, ErrInvalidCredentials
		}
		return ports.Account{}, err
	}
	got := passwordHash(rec.PasswordSalt, password)
	if subtle.ConstantTimeCompare(got, rec.PasswordHash) != 1 {
		return ports.Account{}, ErrInvalidCredentials
	}
	return ports.Account{Username: rec.Username, UserID: rec.UserID, HashPassword: rec.HashPassword}, nil
}

func passwordHash(salt []byte, password string) []byte {
	b := make([]byte, 0, len(salt)+len(password))
	b = append(b, salt...)
	b = append(b, password...)
	sum := sha256.Sum256(b)
	return sum[:]
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
