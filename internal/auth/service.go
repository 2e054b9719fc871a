package auth

import (
	"context"
	"errors"
	"time"

	"backend-mileagehub/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	DriverID string `json:"driver_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, q db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     q,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Driver, TokenResponse, error) {
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return Driver{}, TokenResponse{}, errors.New("email, username, password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Driver{}, TokenResponse{}, err
	}

	driver := Driver{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		VehiclePlate: req.VehiclePlate,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO drivers (id, email, username, password_hash, full_name, vehicle_plate)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, driver.ID, driver.Email, driver.Username, driver.PasswordHash, driver.FullName, driver.VehiclePlate)
	if err := row.Scan(&driver.CreatedAt, &driver.UpdatedAt); err != nil {
		return Driver{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, driver.ID)
	if err != nil {
		return Driver{}, TokenResponse{}, err
	}
	return driver, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Driver, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, username, password_hash, full_name, vehicle_plate, created_at, updated_at
		FROM drivers WHERE email = $1
	`, req.Email)

	var driver Driver
	if err := row.Scan(&driver.ID, &driver.Email, &driver.Username, &driver.PasswordHash, &driver.FullName, &driver.VehiclePlate, &driver.CreatedAt, &driver.UpdatedAt); err != nil {
		return Driver{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte(req.Password)); err != nil {
		return Driver{}, TokenResponse{}, errors.New("invalid credentials")
	}

	tokens, err := s.GenerateTokens(ctx, driver.ID)
	if err != nil {
		return Driver{}, TokenResponse{}, err
	}
	return driver, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, driverID string) (TokenResponse, error) {
	access, err := s.signToken(driverID, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := s.signToken(driverID, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, driverID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	driverID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || driverID != claims.DriverID || time.Now().After(expiresAt) {
		return "", errors.New("refresh token invalid")
	}
	return claims.DriverID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.DriverID, nil
}

func (s *Service) signToken(driverID string, ttl time.Duration) (string, error) {
	claims := Claims{
		DriverID: driverID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, driverID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, driver_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), driverID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT driver_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var driverID string
	var expiresAt time.Time
	if err := row.Scan(&driverID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return driverID, expiresAt, nil
}
