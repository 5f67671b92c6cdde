package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

const RefreshCookie = "rt"

// --- Helpers ---

func genRaw() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashRaw(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

func (h *Handler) setRTCookie(w http.ResponseWriter, raw string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    raw,
		Path:     "/auth", // cobre /auth/refresh e /auth/logout
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

func (h *Handler) clearRTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// TokenResponse é o corpo devolvido por login e refresh.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        *models.User `json:"user,omitempty"`
}

// --- Fluxo ---

// issueTokens grava um novo refresh token na família informada e devolve o
// access token junto com o valor bruto do refresh.
func (h *Handler) issueTokens(db *gorm.DB, userID string, role models.Role, familyID string) (string, string, time.Time, error) {
	access, err := h.tokens.GenerateAccessToken(userID, role)
	if err != nil {
		return "", "", time.Time{}, eris.Wrap(err, "auth: generate access token")
	}

	raw, err := genRaw()
	if err != nil {
		return "", "", time.Time{}, eris.Wrap(err, "auth: generate refresh token")
	}

	rt := models.RefreshToken{
		UserID:    userID,
		Role:      role,
		FamilyID:  familyID,
		Hash:      hashRaw(raw),
		ExpiresAt: h.now().Add(h.cfg.RefreshTTL),
	}
	if err := db.Create(&rt).Error; err != nil {
		return "", "", time.Time{}, eris.Wrap(err, "auth: store refresh token")
	}
	return access, raw, rt.ExpiresAt, nil
}

// Rotate troca um refresh token válido por um novo na mesma família. A
// reapresentação de um token já revogado revoga a família inteira.
func (h *Handler) Rotate(ctx context.Context, raw string) (access, newRaw string, exp time.Time, err error) {
	if raw == "" {
		return "", "", time.Time{}, apperr.Unauthenticated("no refresh token")
	}

	reused := false
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.RefreshToken
		if err := tx.Where("hash = ?", hashRaw(raw)).First(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthenticated("invalid refresh token")
			}
			return eris.Wrap(err, "auth: find refresh token")
		}

		now := h.now()
		if cur.RevokedAt != nil {
			if err := h.revokeFamily(tx, cur.FamilyID, now); err != nil {
				return err
			}
			h.logger.Warn("refresh token reuse detected",
				zap.String("user_id", cur.UserID),
				zap.String("family_id", cur.FamilyID),
			)
			// a revogação da família precisa ser commitada
			reused = true
			return nil
		}
		if now.After(cur.ExpiresAt) {
			return apperr.Unauthenticated("refresh token expired")
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", cur.ID).
			Update("revoked_at", now)
		if res.Error != nil {
			return eris.Wrap(res.Error, "auth: revoke refresh token")
		}
		if res.RowsAffected == 0 {
			return apperr.Unauthenticated("refresh token revoked")
		}

		var err error
		access, newRaw, exp, err = h.issueTokens(tx, cur.UserID, cur.Role, cur.FamilyID)
		return err
	})
	if err != nil {
		return "", "", time.Time{}, err
	}
	if reused {
		return "", "", time.Time{}, apperr.Unauthenticated("refresh token revoked")
	}
	return access, newRaw, exp, nil
}

func (h *Handler) revokeFamily(tx *gorm.DB, familyID string, at time.Time) error {
	err := tx.Model(&models.RefreshToken{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", at).Error
	return eris.Wrap(err, "auth: revoke refresh family")
}

// POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var raw string
	if c, err := r.Cookie(RefreshCookie); err == nil {
		raw = c.Value
	}

	access, newRaw, exp, err := h.Rotate(r.Context(), raw)
	if err != nil {
		h.clearRTCookie(w)
		utils.WriteError(w, r, err)
		return
	}
	h.setRTCookie(w, newRaw, exp)

	utils.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTTL().Seconds()),
	})
}

// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(RefreshCookie); err == nil && c.Value != "" {
		err := h.DB.WithContext(r.Context()).Model(&models.RefreshToken{}).
			Where("hash = ? AND revoked_at IS NULL", hashRaw(c.Value)).
			Update("revoked_at", h.now()).Error
		if err != nil {
			h.logger.Warn("failed to revoke refresh token", zap.Error(err))
		}
	}
	h.clearRTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func newFamilyID() string { return uuid.NewString() }
