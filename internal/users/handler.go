// Package users serves the authenticated user's profile and password
// management endpoints.
package users

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"calculations-service/internal/auth"
	"calculations-service/internal/handlers"
	"calculations-service/internal/storage"
)

type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Username  *string `json:"username"`
}

type PasswordChangeRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// MeHandler handles GET /users/me.
func MeHandler(users *storage.Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := users.ByID(userID)
		if err != nil {
			handlers.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		handlers.WriteJSON(w, http.StatusOK, user)
	}
}

// UpdateProfileHandler handles PUT /users/me/profile. The patch is partial;
// absent fields keep their current value. Setting a field to its current
// value is allowed, so uniqueness checks exclude the user's own row.
func UpdateProfileHandler(users *storage.Users, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FirstName == nil && req.LastName == nil && req.Email == nil && req.Username == nil {
			handlers.WriteError(w, http.StatusBadRequest, "No fields provided for update")
			return
		}

		user, err := users.ByID(userID)
		if err != nil {
			handlers.WriteError(w, http.StatusNotFound, "User not found")
			return
		}

		if req.Email != nil {
			if err := auth.ValidateEmail(*req.Email); err != nil {
				handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			taken, err := users.EmailTaken(*req.Email, user.ID)
			if err != nil {
				handlers.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if taken {
				handlers.WriteError(w, http.StatusBadRequest, "Email already registered")
				return
			}
			user.Email = *req.Email
		}
		if req.Username != nil {
			if err := auth.ValidateUsername(*req.Username); err != nil {
				handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			taken, err := users.UsernameTaken(*req.Username, user.ID)
			if err != nil {
				handlers.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if taken {
				handlers.WriteError(w, http.StatusBadRequest, "Username already taken")
				return
			}
			user.Username = *req.Username
		}
		if req.FirstName != nil {
			user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			user.LastName = *req.LastName
		}

		if err := users.Save(user); err != nil {
			logger.Error("failed to update profile", zap.String("user_id", user.ID), zap.Error(err))
			handlers.WriteError(w, http.StatusInternalServerError, "failed to update profile")
			return
		}

		logger.Info("profile updated", zap.String("user_id", user.ID))
		handlers.WriteJSON(w, http.StatusOK, user)
	}
}

// ChangePasswordHandler handles PUT /users/me/password.
func ChangePasswordHandler(users *storage.Users, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req PasswordChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.NewPassword != req.ConfirmNewPassword {
			handlers.WriteError(w, http.StatusUnprocessableEntity, "new passwords do not match")
			return
		}
		if req.NewPassword == req.CurrentPassword {
			handlers.WriteError(w, http.StatusUnprocessableEntity, "new password must be different from the current password")
			return
		}
		if err := auth.ValidatePassword(req.NewPassword); err != nil {
			handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		user, err := users.ByID(userID)
		if err != nil {
			handlers.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			handlers.WriteError(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user.PasswordHash = hash
		if err := users.Save(user); err != nil {
			logger.Error("failed to change password", zap.String("user_id", user.ID), zap.Error(err))
			handlers.WriteError(w, http.StatusInternalServerError, "failed to change password")
			return
		}

		logger.Info("password changed", zap.String("user_id", user.ID))
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
	}
}
