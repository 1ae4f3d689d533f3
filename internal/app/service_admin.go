package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
)

const (
	defaultUsersPageSize = 20
	maxUsersPageSize     = 100
)

// ListUsers pages through accounts for the admin user screen.
func (s *Service) ListUsers(ctx context.Context, page, limit int, query string) (map[string]any, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUsersPageSize
	}
	if limit > maxUsersPageSize {
		limit = maxUsersPageSize
	}

	users, total, err := s.store.ListUsers(ctx, (page-1)*limit, limit, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}

	payload := make([]map[string]any, 0, len(users))
	for _, user := range users {
		payload = append(payload, userPayload(user))
	}
	return map[string]any{
		"users": payload,
		"total": total,
		"page":  page,
		"limit": limit,
	}, nil
}

// ApproveUser activates a pending account and sends the welcome email
// without blocking on it.
func (s *Service) ApproveUser(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return nil, err
	}

	if user.Status != "APPROVED" {
		if err := s.store.UpdateUserStatus(ctx, userID, "APPROVED"); err != nil {
			return nil, err
		}
		s.sendWelcome(user)
	}
	return map[string]any{"message": "User approved"}, nil
}

func (s *Service) RejectUser(ctx context.Context, userID string) (map[string]any, error) {
	if err := s.store.UpdateUserStatus(ctx, userID, "REJECTED"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return nil, err
	}
	return map[string]any{"message": "User rejected"}, nil
}

func (s *Service) PromoteUser(ctx context.Context, userID string) (map[string]any, error) {
	if err := s.store.UpdateUserRole(ctx, userID, "ADMIN"); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return nil, err
	}
	return map[string]any{"message": "User promoted to admin"}, nil
}

// DemoteUser removes admin rights. The platform must always keep at
// least one admin, so demoting the last one is rejected.
func (s *Service) DemoteUser(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return nil, err
	}

	if user.Role == "ADMIN" {
		admins, err := s.store.CountAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, domainError(http.StatusConflict, "LAST_ADMIN", "Cannot demote the last admin", nil)
		}
	}

	if err := s.store.UpdateUserRole(ctx, userID, "USER"); err != nil {
		return nil, err
	}
	return map[string]any{"message": "User demoted"}, nil
}

// Settings lists the hot-configurable platform settings. The AI key is
// masked in transit.
func (s *Service) Settings(ctx context.Context) (map[string]any, error) {
	settings, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	payload := make([]map[string]any, 0, len(settings))
	for _, setting := range settings {
		value := setting.Value
		if setting.Name == "AI_API_KEY" && value != "" {
			value = maskSecret(value)
		}
		entry := map[string]any{
			"id":          setting.ID,
			"name":        setting.Name,
			"description": setting.Description,
			"value":       value,
			"updatedAt":   setting.UpdatedAt,
		}
		if setting.UpdatedBy != nil {
			entry["updatedBy"] = *setting.UpdatedBy
			entry["updatedByName"] = setting.UpdatedByName
		}
		payload = append(payload, entry)
	}
	return map[string]any{"settings": payload}, nil
}

func (s *Service) UpdateSetting(ctx context.Context, settingID, value, updatedBy string) (map[string]any, error) {
	if strings.TrimSpace(value) == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION", "Setting value cannot be empty", nil)
	}
	if err := s.store.UpdateSetting(ctx, settingID, value, updatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Setting not found", nil)
		}
		return nil, err
	}
	return map[string]any{"message": "Setting updated"}, nil
}

func maskSecret(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
