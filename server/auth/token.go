package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/indieinfra/quill/config"
)

// TokenDetails holds the token introspection response from the token
// endpoint.
type TokenDetails struct {
	Me       string `json:"me"`
	ClientId string `json:"client_id"`
	Scope    string `json:"scope"`
	IssuedAt uint   `json:"issued_at"`
	Nonce    int    `json:"nonce"`
}

func (details *TokenDetails) String() string {
	return fmt.Sprintf("TokenDetails{me=%v, clientId=%v, scope=%v, issuedAt=%v, nonce=%v}", details.Me, details.ClientId, details.Scope, details.IssuedAt, details.Nonce)
}

func (details *TokenDetails) HasScope(scope Scope) bool {
	return slices.Contains(strings.Split(strings.ToLower(details.Scope), " "), strings.ToLower(scope.String()))
}

func (details *TokenDetails) HasMe(me string) bool {
	me = strings.TrimSuffix(strings.TrimSpace(me), "/") + "/"
	meDetails := strings.TrimSuffix(strings.TrimSpace(details.Me), "/") + "/"
	return strings.EqualFold(me, meDetails)
}

var (
	ErrEmptyToken        = errors.New("received empty token")
	ErrTokenEndpointFail = errors.New("failed to contact token endpoint")
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// VerifyAccessToken introspects the token against the configured token
// endpoint. A nil TokenDetails with a nil error means the token was rejected.
func VerifyAccessToken(ctx context.Context, cfg *config.Config, token string) (*TokenDetails, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Micropub.TokenEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create http request for token endpoint: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", token))

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenEndpointFail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if cfg.Debug {
			log.Printf("debug: token failed validation at token endpoint (%q)", token)
		}

		return nil, nil
	}

	details := &TokenDetails{}
	err = json.NewDecoder(resp.Body).Decode(details)
	if err != nil {
		log.Println(fmt.Errorf("warning: token endpoint provided bad data, can not verify token: %w", err))
		return nil, nil
	}

	if details.Me == "" {
		log.Println("warning: token endpoint did not include \"me\" information - cannot verify token")
		return nil, nil
	}

	if !details.HasMe(cfg.Micropub.MeUrl) {
		if cfg.Debug {
			log.Printf("debug: received a valid token that did not belong to this instance! (%q)\n", token)
		}

		return nil, nil
	}

	return details, nil
}
