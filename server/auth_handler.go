package server

import (
	"errors"
	"net/http"
	"strings"

	"moodwave/core/auth"
	"moodwave/logger"
	"moodwave/model"
	"moodwave/repository"
)

const msgEmailTaken = "user with this email already exists."

type registerRequest struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	Password    string  `json:"password" validate:"required"`
	Password2   *string `json:"password2"`
	DisplayName string  `json:"display_name" validate:"max=150"`
}

type tokenObtainRequest struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"username"` // alias for email
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// RegisterHandler creates an account. It does not log the user in.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.Email = strings.TrimSpace(req.Email)

	fields := validateFields(&req)
	if _, bad := fields["password"]; !bad {
		for _, perr := range auth.ValidatePassword(req.Password) {
			fields.Add("password", perr.Error())
		}
	}
	if req.Password2 != nil && *req.Password2 != req.Password {
		fields.Add("password2", "Password fields didn't match.")
	}
	if _, bad := fields["email"]; !bad {
		exists, err := s.users.EmailExists(r.Context(), req.Email)
		if err != nil {
			return err
		}
		if exists {
			fields.Add("email", msgEmailTaken)
		}
	}
	if err := fields.Err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	user := &model.User{
		Email:       req.Email,
		Password:    hash,
		DisplayName: req.DisplayName,
		IsActive:    true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return FieldErrors{"email": {msgEmailTaken}}.Err()
		}
		return err
	}

	logger.Info("user registered", logger.Int64("user_id", user.ID), logger.String("email", user.Email))
	writeJSON(w, http.StatusCreated, newUserResponse(user))
	return nil
}

// MeHandler returns the authenticated caller.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) error {
	user, err := requireUser(r)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
	return nil
}

// TokenObtainHandler exchanges credentials for an access/refresh pair.
func (s *Server) TokenObtainHandler(w http.ResponseWriter, r *http.Request) error {
	var req tokenObtainRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateFields(&req).Err(); err != nil {
		return err
	}

	identity := req.Email
	if identity == "" {
		identity = req.Username
	}

	user, err := s.users.FindByEmail(r.Context(), identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errBadCredentials
		}
		return err
	}
	if !auth.CheckPasswordHash(req.Password, user.Password) || !user.IsActive {
		logger.Warn("login failed", logger.Int64("user_id", user.ID))
		return errBadCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateLastLogin(r.Context(), user.ID, s.db.NowFunc()); err != nil {
		logger.Warn("failed to record last login", logger.Int64("user_id", user.ID), logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, pair)
	return nil
}

// TokenRefreshHandler issues a new access token for a valid refresh token.
// The refresh token itself is not rotated.
func (s *Server) TokenRefreshHandler(w http.ResponseWriter, r *http.Request) error {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateFields(&req).Err(); err != nil {
		return err
	}

	claims, err := s.tokens.Parse(req.Refresh, auth.RefreshToken)
	if err != nil {
		return errTokenNotValid
	}
	revoked, err := s.blacklist.Contains(r.Context(), claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return errTokenNotValid
	}

	user, err := s.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errBadCredentials
		}
		return err
	}
	if !user.IsActive {
		return errBadCredentials
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
	return nil
}

// TokenBlacklistHandler revokes a refresh token until it expires.
func (s *Server) TokenBlacklistHandler(w http.ResponseWriter, r *http.Request) error {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateFields(&req).Err(); err != nil {
		return err
	}

	claims, err := s.tokens.Parse(req.Refresh, auth.RefreshToken)
	if err != nil {
		return errTokenNotValid
	}
	if err := s.blacklist.Add(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}

	logger.Info("refresh token revoked", logger.Int64("user_id", claims.UserID))
	writeJSON(w, http.StatusOK, struct{}{})
	return nil
}
