package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	goerrors "errors"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/db"
	apperr "github.com/sparklabs/spark-backend/internal/errors"
	"github.com/sparklabs/spark-backend/internal/repository"
)

const (
	resetTokenLength   = 10
	resetTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	resetTokenTTL      = 15 * time.Minute
	minimumAge         = 18
)

// Service implements account creation, login and the password flows.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Email     string
	Password  string
	FullName  string
	Birthdate time.Time
	Gender    string
}

// RegisterUser creates the account and its default profile. The default
// interest preference is the opposite of the declared gender for the two
// recognized values and the wildcard otherwise.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*db.User, error) {
	if ageAt(time.Now(), in.Birthdate) < minimumAge {
		return nil, apperr.Validation("you must be at least 18 years old to join")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("email already exists")
	} else if !goerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Map(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Map(err)
	}

	interestIn := db.InterestBoth
	switch in.Gender {
	case db.GenderMale:
		interestIn = db.GenderFemale
	case db.GenderFemale:
		interestIn = db.GenderMale
	}

	user, err := s.users.CreateWithProfile(ctx, in.Email, string(hash), db.Profile{
		FullName:     in.FullName,
		Birthdate:    in.Birthdate,
		Gender:       in.Gender,
		InterestIn:   interestIn,
		AgeMin:       18,
		AgeMax:       100,
		InterestTags: db.StringList{},
	})
	if err != nil {
		return nil, apperr.Map(err)
	}
	return user, nil
}

// LoginUser verifies the credentials. Unknown email and wrong password
// produce the same failure so callers cannot tell which.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*db.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Auth("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Auth("invalid email or password")
	}
	return user, nil
}

// IssueToken signs a bearer token for the account.
func (s *Service) IssueToken(userID uint64) (string, error) {
	ttl := time.Duration(s.appCtx.Cfg.Auth.TokenTTLMinutes) * time.Minute
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(s.appCtx.Cfg.Auth.JWTSecret))
}

// ForgotPassword issues a fresh reset token, invalidating any prior one for
// the email. Unknown emails are silently ignored so the response never
// reveals whether an account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperr.Map(err)
	}

	token, err := generateResetToken()
	if err != nil {
		return apperr.Map(err)
	}
	if err := s.users.ReplaceResetToken(ctx, email, token, time.Now().Add(resetTokenTTL)); err != nil {
		return apperr.Map(err)
	}

	// Mail delivery is out of scope; the code is surfaced in the logs for
	// development use.
	s.appCtx.Logger.Info("password reset code generated", "email", email, "code", token)
	return nil
}

// ResetPassword redeems a token: match and non-expiry are checked in one
// query and the token is consumed on success. Invalid and expired tokens are
// indistinguishable to the caller.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.users.GetLiveResetToken(ctx, token, time.Now())
	if err != nil {
		return apperr.NotFound("invalid or expired code")
	}

	user, err := s.users.GetByEmail(ctx, reset.Email)
	if err != nil {
		return apperr.NotFound("invalid or expired code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Map(err)
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		if err := users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return err
		}
		return users.DeleteResetToken(ctx, reset.ID)
	})
	return apperr.Map(err)
}

// ageAt is the day-accurate age used by the registration check.
func ageAt(now, birthdate time.Time) int {
	age := now.Year() - birthdate.Year()
	if now.Month() < birthdate.Month() ||
		(now.Month() == birthdate.Month() && now.Day() < birthdate.Day()) {
		age--
	}
	return age
}

func generateResetToken() (string, error) {
	out := make([]byte, resetTokenLength)
	max := big.NewInt(int64(len(resetTokenAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = resetTokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
