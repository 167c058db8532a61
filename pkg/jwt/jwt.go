package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// issuer 签发方标识，校验时强制匹配
const issuer = "collab"

// TokenType Token 类型
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Platform 登录平台
type Platform string

const (
	PlatformUnknown Platform = "unknown"
	PlatformWeb     Platform = "web"
	PlatformDesktop Platform = "desktop"
	PlatformMobile  Platform = "mobile"
)

// ParsePlatform 解析平台标识，空值按 Web 处理，未知值归为 unknown
func ParsePlatform(s string) Platform {
	switch Platform(s) {
	case PlatformWeb, PlatformDesktop, PlatformMobile:
		return Platform(s)
	case "":
		return PlatformWeb
	default:
		return PlatformUnknown
	}
}

// Claims JWT 声明
type Claims struct {
	UserID    int64     `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	Platform  Platform  `json:"platform"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair 一次签发的 Access/Refresh Token 对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // Access Token 过期时间（Unix 秒）
}

// Service JWT 服务
type Service struct {
	secretKey     []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// NewService 创建 JWT 服务
func NewService(secretKey string, accessExpire, refreshExpire time.Duration) *Service {
	return &Service{
		secretKey:     []byte(secretKey),
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

// GenerateTokenPair 签发一对 Token，Access 与 Refresh 各自独立过期
func (s *Service) GenerateTokenPair(userID int64, deviceID string, platform Platform) (*TokenPair, error) {
	now := time.Now()
	accessExpiresAt := now.Add(s.accessExpire)

	accessToken, err := s.sign(userID, deviceID, platform, AccessToken, now, accessExpiresAt)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sign(userID, deviceID, platform, RefreshToken, now, now.Add(s.refreshExpire))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpiresAt.Unix(),
	}, nil
}

func (s *Service) sign(userID int64, deviceID string, platform Platform, tokenType TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID:    userID,
		DeviceID:  deviceID,
		Platform:  platform,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

// ValidateAccessToken 验证 Access Token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, AccessToken)
}

// ValidateRefreshToken 验证 Refresh Token
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, RefreshToken)
}

// validate 解析并校验签名、签发方和 Token 类型
func (s *Service) validate(tokenString string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) { return s.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != expectedType {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
