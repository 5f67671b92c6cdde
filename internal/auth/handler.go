package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/ratelimit"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

// Handler cuida do cadastro e da sessão (login, refresh, logout).
type Handler struct {
	DB      *gorm.DB
	Users   repository.UserRepository
	tokens  *TokenIssuer
	limiter ratelimit.Limiter
	cfg     config.AuthConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewHandler(db *gorm.DB, users repository.UserRepository, tokens *TokenIssuer, limiter ratelimit.Limiter, cfg config.AuthConfig, logger *zap.Logger) *Handler {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{
		DB:      db,
		Users:   users,
		tokens:  tokens,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email       string      `json:"email" validate:"required,email,max=255"`
	Password    string      `json:"password" validate:"required,min=8,max=72"`
	Role        models.Role `json:"role" validate:"required,oneof=MANUFACTURER SUPPLIER"`
	CompanyName string      `json:"companyName" validate:"required,max=255"`
	ContactName string      `json:"contactName" validate:"required,max=255"`
	Phone       string      `json:"phone" validate:"max=50"`
	Address     string      `json:"address" validate:"max=1000"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register cria a conta. O limitador é consultado antes de qualquer outra
// verificação, com o IP de origem como chave.
func (h *Handler) Register(ctx context.Context, clientIP string, in RegisterInput) (*models.User, error) {
	if h.limiter != nil {
		d, err := h.limiter.Allow(ctx, clientIP)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, apperr.RateLimited("too many requests, please try again later")
		}
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	db := h.DB.WithContext(ctx)
	if _, err := h.Users.FindByEmail(db, in.Email); err == nil {
		return nil, apperr.Validation("user already exists")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	hash, err := utils.HashSenha(in.Password, h.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "could not hash password")
	}

	u := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CompanyName:  in.CompanyName,
		ContactName:  in.ContactName,
		Phone:        in.Phone,
		Address:      in.Address,
	}
	if err := h.Users.Create(db, u); err != nil {
		if apperr.Is(err, apperr.KindDuplicate) {
			return nil, apperr.Validation("user already exists")
		}
		return nil, err
	}

	h.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login confere as credenciais. Email desconhecido e senha errada devolvem o
// mesmo erro.
func (h *Handler) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	u, err := h.Users.FindByEmail(h.DB.WithContext(ctx), in.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !utils.VerificarSenha(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return u, nil
}

// POST /auth/register
func (h *Handler) RegisterHTTP(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	u, err := h.Register(r.Context(), utils.ClientIP(r), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{"user": u})
}

// POST /auth/login
func (h *Handler) LoginHTTP(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	u, err := h.Login(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	access, raw, exp, err := h.issueTokens(h.DB.WithContext(r.Context()), u.ID, u.Role, newFamilyID())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	h.setRTCookie(w, raw, exp)

	utils.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTTL().Seconds()),
		User:        u,
	})
}

// GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	u, err := h.Users.FindByID(h.DB.WithContext(r.Context()), id.UserID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, u)
}
