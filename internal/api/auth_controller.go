package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConsts "github.com/grand-thief-cash/voltify/internal/consts"
)

// AuthController JSON 与表单两套注册/登录入口, 状态码一致
type AuthController struct {
	*core.BaseComponent
	Auth Authenticator `infra:"dep:auth_service"`

	sessionTTL time.Duration
}

func NewAuthController(sessionTTL time.Duration) *AuthController {
	return &AuthController{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_AUTH),
		sessionTTL:    sessionTTL,
	}
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (ac *AuthController) decode(r *http.Request) (credentialsReq, error) {
	var req credentialsReq
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Username, req.Password = r.PostFormValue("username"), r.PostFormValue("password")
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

func (ac *AuthController) register(w http.ResponseWriter, r *http.Request) {
	req, err := ac.decode(r)
	if err != nil {
		logging.Warn(r.Context(), fmt.Sprintf("register decode failed: %v", err))
		ac.missing(w, r)
		return
	}
	if req.Username == "" || req.Password == "" {
		ac.missing(w, r)
		return
	}
	if err := ac.Auth.Register(r.Context(), req.Username, req.Password); err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusCreated, "User registered successfully!", map[string]string{"message": "User registered successfully"})
}

func (ac *AuthController) login(w http.ResponseWriter, r *http.Request) {
	req, err := ac.decode(r)
	if err != nil {
		logging.Warn(r.Context(), fmt.Sprintf("login decode failed: %v", err))
		ac.missing(w, r)
		return
	}
	if req.Username == "" || req.Password == "" {
		ac.missing(w, r)
		return
	}
	token, err := ac.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     bizConsts.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ac.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	reply(w, r, http.StatusOK, fmt.Sprintf("Welcome, %s!", req.Username),
		map[string]string{"message": "Logged in successfully", "token": token})
}

func (ac *AuthController) logout(w http.ResponseWriter, r *http.Request) {
	if err := ac.Auth.Logout(r.Context(), sessionToken(r)); err != nil {
		fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: bizConsts.SessionCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeText(w, http.StatusOK, "Logged out!")
}

func (ac *AuthController) missing(w http.ResponseWriter, r *http.Request) {
	if isForm(r) {
		writeText(w, http.StatusBadRequest, "Missing fields")
		return
	}
	writeErr(w, http.StatusBadRequest, "Missing username or password")
}
