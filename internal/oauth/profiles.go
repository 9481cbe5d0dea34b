package oauth

import (
	"encoding/json"
	"fmt"

	"marketplace/internal/domain"
)

const (
	ProviderNaver  = "naver"
	ProviderKakao  = "kakao"
	ProviderGoogle = "google"
)

type profileDecoder func(body []byte) (domain.OAuthProfile, error)

type providerDefaults struct {
	authURL     string
	tokenURL    string
	userInfoURL string
	scopes      []string
	decode      profileDecoder
}

var knownProviders = map[string]providerDefaults{
	ProviderNaver: {
		authURL:     "https://nid.naver.com/oauth2.0/authorize",
		tokenURL:    "https://nid.naver.com/oauth2.0/token",
		userInfoURL: "https://openapi.naver.com/v1/nid/me",
		decode:      decodeNaver,
	},
	ProviderKakao: {
		authURL:     "https://kauth.kakao.com/oauth/authorize",
		tokenURL:    "https://kauth.kakao.com/oauth/token",
		userInfoURL: "https://kapi.kakao.com/v2/user/me",
		scopes:      []string{"profile_nickname", "account_email"},
		decode:      decodeKakao,
	},
	ProviderGoogle: {
		authURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:    "https://oauth2.googleapis.com/token",
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		scopes:      []string{"openid", "email", "profile"},
		decode:      decodeGoogle,
	},
}

type naverUserInfo struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Nickname string `json:"nickname"`
	} `json:"response"`
}

// naver responde 200 con resultcode distinto de "00" cuando el token no sirve.
func decodeNaver(body []byte) (domain.OAuthProfile, error) {
	var info naverUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	if info.ResultCode != "" && info.ResultCode != "00" {
		return domain.OAuthProfile{}, fmt.Errorf("naver user info failed: %s %s", info.ResultCode, info.Message)
	}
	name := info.Response.Name
	if name == "" {
		name = info.Response.Nickname
	}
	return domain.OAuthProfile{
		Subject: info.Response.ID,
		Email:   info.Response.Email,
		Name:    name,
	}, nil
}

type kakaoUserInfo struct {
	ID           json.Number `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func decodeKakao(body []byte) (domain.OAuthProfile, error) {
	var info kakaoUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	return domain.OAuthProfile{
		Subject: info.ID.String(),
		Email:   info.KakaoAccount.Email,
		Name:    info.KakaoAccount.Profile.Nickname,
	}, nil
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func decodeGoogle(body []byte) (domain.OAuthProfile, error) {
	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return domain.OAuthProfile{}, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	return domain.OAuthProfile{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}
