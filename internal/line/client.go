package line

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sharetrust/sharetrust/config"
)

var (
	ErrCodeExchangeFailed = errors.New("line code exchange failed")
	ErrInvalidIDToken     = errors.New("invalid line id token")
	ErrProfileFetch       = errors.New("line profile fetch failed")
)

// TokenResponse LINE 令牌端点的响应
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// IDTokenClaims 从已验证的 id_token 中提取的声明
type IDTokenClaims struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
}

// Profile LINE Profile API 的响应
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}

// Client 封装 LINE OAuth 的三步交互：code 换令牌、验证 id_token、拉取档案。
// id_token 的签名用 LINE 的 JWKS 验证，验证失败一律拒绝登录。
type Client struct {
	cfg        *config.LineConfig
	httpClient *http.Client
	jwks       keyfunc.Keyfunc
	logger     *zap.Logger
}

// NewClient 创建 LINE 客户端并启动 JWKS 的后台刷新
func NewClient(cfg *config.LineConfig, logger *zap.Logger) (*Client, error) {
	jwks, err := keyfunc.NewDefault([]string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("初始化 LINE JWKS 失败: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwks:       jwks,
		logger:     logger,
	}, nil
}

// ExchangeCode 用授权码换取令牌
// 非 2xx 或响应缺少 id_token 都按失败处理
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("client_id", c.cfg.ChannelID)
	form.Set("client_secret", c.cfg.ChannelSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("LINE 令牌端点返回错误",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("%w: status %d", ErrCodeExchangeFailed, resp.StatusCode)
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}
	if token.IDToken == "" {
		return nil, fmt.Errorf("%w: response missing id_token", ErrCodeExchangeFailed)
	}

	return &token, nil
}

// VerifyIDToken 用 JWKS 验证 id_token 的签名、签发者和受众
// 任一校验不通过都返回 ErrInvalidIDToken，绝不降级为只解码
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*IDTokenClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, c.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"ES256", "RS256"}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.ChannelID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		c.logger.Warn("LINE id_token 验证失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidIDToken)
	}

	out := &IDTokenClaims{Sub: sub}
	if v, ok := claims["name"].(string); ok {
		out.Name = v
	}
	if v, ok := claims["picture"].(string); ok {
		out.Picture = v
	}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	return out, nil
}

// GetProfile 用 access token 拉取 LINE 档案
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProfileFetch, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("%w: response missing userId", ErrProfileFetch)
	}

	return &profile, nil
}
