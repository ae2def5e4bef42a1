package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/npezzotti/taskpulse/internal/database"
	"github.com/npezzotti/taskpulse/internal/notify"
	"github.com/npezzotti/taskpulse/internal/types"
	"go.uber.org/zap"
)

const maxListLimit = 100

type OnlineStatusRequest struct {
	UserIds []string `json:"userIds"`
}

type OnlineStatusResponse struct {
	OnlineStatus map[string]bool `json:"onlineStatus"`
}

type OnlineUsersResponse struct {
	Users []types.Profile `json:"users"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type UpdatedResponse struct {
	Updated int64 `json:"updated"`
}

type CreatedResponse struct {
	Created int `json:"created"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode", zap.Error(err))
	}
}

func (s *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.log.Error("store unavailable", zap.Error(err))
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *App) onlineStatus(w http.ResponseWriter, r *http.Request) {
	var req OnlineStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, OnlineStatusResponse{
		OnlineStatus: s.registry.OnlineStatusForMany(req.UserIds),
	})
}

func (s *App) onlineUsers(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, OnlineUsersResponse{Users: s.registry.OnlineProfiles()})
}

func (s *App) onlineCount(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, CountResponse{Count: int64(s.registry.OnlineCount())})
}

func (s *App) listNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var (
		limit      int
		unreadOnly bool
		err        error
	)
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		limit = min(limit, maxListLimit)
	}
	if v := r.URL.Query().Get("unread"); v != "" {
		unreadOnly, err = strconv.ParseBool(v)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	notifications, err := s.repo.List(r.Context(), user.Id, limit, unreadOnly)
	if err != nil {
		s.log.Error("failed to list notifications", zap.String("user_id", user.Id), zap.Error(err))
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, notifications)
}

func (s *App) unreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.repo.CountUnread(r.Context(), user.Id)
	if err != nil {
		s.log.Error("failed to count unread notifications", zap.String("user_id", user.Id), zap.Error(err))
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, CountResponse{Count: count})
}

func (s *App) markRead(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	id := r.PathValue("id")
	if err := s.repo.MarkRead(r.Context(), id, user.Id); err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			s.log.Error("failed to mark notification read", zap.String("notification_id", id), zap.Error(err))
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *App) markAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.repo.MarkAllRead(r.Context(), user.Id)
	if err != nil {
		s.log.Error("failed to mark notifications read", zap.String("user_id", user.Id), zap.Error(err))
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, UpdatedResponse{Updated: updated})
}

// createEvent accepts a domain event from the task, comment or membership
// services. The authenticated caller is the actor.
func (s *App) createEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var e notify.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	e.Actor.Id = user.Id
	if e.Actor.Name == "" {
		e.Actor.Name = user.Name
	}

	created, err := s.dispatcher.Handle(r.Context(), e)
	if err != nil {
		s.log.Error("failed to dispatch event",
			zap.String("kind", string(e.Kind)),
			zap.Int("created", len(created)),
			zap.Error(err),
		)

		if len(created) == 0 {
			var errResp *ApiError
			switch {
			case errors.Is(err, notify.ErrUnknownEvent),
				errors.Is(err, notify.ErrInvalidType),
				errors.Is(err, notify.ErrMissingRecipient):
				errResp = NewBadRequestError()
			default:
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	s.writeJson(w, http.StatusOK, CreatedResponse{Created: len(created)})
}
