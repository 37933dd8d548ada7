package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	config "github.com/wyatts97/schedx/configs"
	"github.com/wyatts97/schedx/internal/models"
	"github.com/wyatts97/schedx/internal/repository"
	"github.com/wyatts97/schedx/pkg/utils"
)

const twitterTokenURL = "https://api.twitter.com/2/oauth2/token"

// refreshLeeway is how close to expiry a token may get before it is refreshed
// ahead of use.
const refreshLeeway = 5 * time.Minute

// TokenService hands out a currently-valid access token for an account,
// refreshing through the platform's OAuth endpoint when the stored one is
// expired or about to expire. Tokens are kept encrypted at rest.
type TokenService interface {
	GetValidToken(ctx context.Context, acc *models.SocialAccount) (string, error)
	ForceRefresh(ctx context.Context, acc *models.SocialAccount) (string, error)
}

type tokenService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewTokenService(cfg config.Config, sa repository.SocialAccountRepository) TokenService {
	return &tokenService{cfg: cfg, sa: sa}
}

func (s *tokenService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.TwitterClientID,
		ClientSecret: s.cfg.TwitterClientSecret,
		RedirectURL:  s.cfg.TwitterRedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  twitterTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (s *tokenService) GetValidToken(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if acc == nil {
		return "", errors.New("social account is nil")
	}

	if time.Until(acc.TokenExpiresAt) > refreshLeeway {
		accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
		if err != nil {
			slog.Info(err.Error())
			return "", err
		}
		return accessToken, nil
	}

	return s.ForceRefresh(ctx, acc)
}

func (s *tokenService) ForceRefresh(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if acc == nil {
		return "", errors.New("social account is nil")
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	src := s.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		slog.Info(err.Error())
		rerr := refreshError(err)
		if IsAuth(rerr) {
			// the grant is gone; stop the pollers from retrying this account
			if serr := s.sa.SetStatus(ctx, acc.ID, models.AccountStatusRevoked); serr != nil {
				slog.Info(serr.Error())
			} else {
				acc.AccountStatus = models.AccountStatusRevoked
			}
		}
		return "", rerr
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	encryptedRefresh, err := utils.Encrypt([]byte(newRefresh), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	if err := s.sa.UpdateTokens(ctx, acc.ID, encryptedAccess, encryptedRefresh, token.Expiry); err != nil {
		return "", err
	}

	acc.AccessToken = encryptedAccess
	acc.RefreshToken = encryptedRefresh
	acc.TokenExpiresAt = token.Expiry

	return token.AccessToken, nil
}

// refreshError classifies an oauth2 retrieval failure: a definite rejection
// from the token endpoint means the grant is gone (auth), anything else is a
// transport problem worth retrying later.
func refreshError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		kind := classifyStatus(rerr.Response.StatusCode)
		if kind == ErrKindFatal {
			kind = ErrKindAuth
		}
		return &PublishError{Kind: kind, StatusCode: rerr.Response.StatusCode, Message: "token refresh rejected"}
	}
	return &PublishError{Kind: ErrKindTransient, Message: "token refresh failed: " + err.Error()}
}
