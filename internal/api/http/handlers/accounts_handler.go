package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nexus-vita/session-service/internal/api/dto"
	"github.com/nexus-vita/session-service/internal/api/http/session"
	"github.com/nexus-vita/session-service/internal/domain"
	"github.com/nexus-vita/session-service/internal/service"
	apperrors "github.com/nexus-vita/session-service/pkg/util"
)

// AccountsHandler exposes registration, login and account lookup endpoints.
type AccountsHandler struct {
	accounts     *service.AccountService
	secureCookie bool
}

// NewAccountsHandler constructs the handler. secureCookie should be true in
// production so the session cookie is HTTPS-only.
func NewAccountsHandler(accounts *service.AccountService, secureCookie bool) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, secureCookie: secureCookie}
}

// Register handles POST /accounts.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	role := domain.RoleUser
	if req.Role != "" {
		parsed, ok := domain.ParseRole(req.Role)
		if !ok {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role})
		}
		// Privileged roles are assigned by an administrator, never self-claimed.
		if parsed != domain.RoleUser {
			return apperrors.NewForbidden("role cannot be self-assigned")
		}
		role = parsed
	}

	account, token, exp, err := h.accounts.Register(c.UserContext(), req.Name, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return apperrors.NewConflict("email already registered", nil)
		}
		return apperrors.ToDomainError(err)
	}

	c.Cookie(session.Cookie(token, exp, h.secureCookie))
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"account": accountResponse(account),
			"session": dto.SessionResponse{SubjectID: account.ID, Role: string(account.Role), ExpiresAt: exp},
		},
	})
}

// Login handles POST /sessions.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	account, token, exp, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.ToDomainError(err)
	}

	c.Cookie(session.Cookie(token, exp, h.secureCookie))
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"account": accountResponse(account),
			"session": dto.SessionResponse{SubjectID: account.ID, Role: string(account.Role), ExpiresAt: exp},
		},
	})
}

// Logout handles DELETE /sessions. Tokens are stateless, so logout only clears
// the cookie; the token stays verifiable until its natural expiry.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(session.ExpiredCookie(h.secureCookie))
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /sessions/me and echoes the verified identity.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	principal, ok := session.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("no session")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"subject_id": principal.SubjectID,
			"role":       string(principal.Role),
		},
	})
}

// Get handles GET /accounts/:id, guarded by SelfOrRole.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	account, err := h.accounts.GetAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.ToDomainError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"account": accountResponse(account)}})
}

// ListByRole handles GET /admin/accounts, guarded by RoleIn(ADMIN).
func (h *AccountsHandler) ListByRole(c *fiber.Ctx) error {
	role, ok := domain.ParseRole(c.Query("role", string(domain.RoleUser)))
	if !ok {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": c.Query("role")})
	}

	accounts, err := h.accounts.ListByRole(c.UserContext(), role, c.QueryInt("limit", 50))
	if err != nil {
		return apperrors.ToDomainError(err)
	}

	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, accountResponse(account))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"accounts": out}})
}

func accountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      string(account.Role),
		Status:    string(account.Status),
		CreatedAt: account.CreatedAt,
	}
}
