package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthConfig builds the installed-app OAuth config for the Sheets scope from
// a client secret JSON downloaded from the Google Cloud console.
func OAuthConfig(clientJSON []byte, redirectURL string) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

// SaveToken writes tok as JSON, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

func parseToken(data []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return &tok, nil
}

// oauthOptions authenticates as the user who authorized the token. The
// token source refreshes expired access tokens on its own.
func oauthOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	clientJSON, err := readInline(cfg.OAuthClientJSON, cfg.OAuthClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := readInline(cfg.OAuthTokenJSON, cfg.OAuthTokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE, or run conti-sheets-auth)")
	}

	oc, err := OAuthConfig(clientJSON, "")
	if err != nil {
		return nil, err
	}
	tok, err := parseToken(tokenJSON)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithTokenSource(oc.TokenSource(ctx, tok))}, nil
}

// readInline returns inline when set, otherwise the contents of file. Both
// empty yields nil.
func readInline(inline, file, what string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return data, nil
	default:
		return nil, nil
	}
}
