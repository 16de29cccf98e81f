// Package token 提供了身份令牌的验证功能。
// 令牌由外部身份服务签发，服务端只做验证并取出其中的所有者标识，
// 从不接触原始凭证。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier 负责验证外部签发的身份令牌。
type Verifier struct {
	secretKey []byte // secretKey 与身份服务共享的验签密钥
}

// IdentityClaims 是身份令牌中携带的声明。
// Subject 即不透明的所有者标识，所有数据访问都以它界定范围。
type IdentityClaims struct {
	jwt.RegisteredClaims
}

// NewVerifier 创建一个新的 Verifier 实例。
func NewVerifier(secret string) *Verifier {
	return &Verifier{secretKey: []byte(secret)}
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 有效，返回其中的 IdentityClaims；
// 签名不匹配、已过期或缺少 subject 时返回错误。
func (v *Verifier) VerifyToken(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

// IssueToken 为给定的所有者标识签发一个身份令牌。
// 线上令牌来自外部身份服务；这个入口用于本地联调和测试。
func (v *Verifier) IssueToken(ownerID string, ttl time.Duration) (string, error) {
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}
