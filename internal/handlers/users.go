package handlers

import (
	"encoding/json"
	"net/http"

	"wallet/internal/middleware"
	"wallet/internal/models"
	"wallet/internal/services"
	"wallet/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	var rows []models.User
	var err error
	if search := r.URL.Query().Get("search"); search != "" {
		rows, err = h.users.Search(r.Context(), search, limit, offset)
	} else {
		rows, err = h.users.List(r.Context(), limit, offset)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	users := make([]map[string]any, 0, len(rows))
	for _, user := range rows {
		users = append(users, userJSON(user))
	}
	respondJSON(w, http.StatusOK, users)
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name != "" {
		if err := validator.ValidateName(req.Name); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Email != "" {
		if err := validator.ValidateEmail(req.Email); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Role != "" {
		if err := validator.ValidateRole(req.Role); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	user, err := h.userSvc.Update(r.Context(), services.UpdateUserRequest{
		UserID:  chi.URLParam(r, "id"),
		Name:    req.Name,
		Email:   req.Email,
		Role:    req.Role,
		ActorID: actorID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, userJSON(user))
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userSvc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
