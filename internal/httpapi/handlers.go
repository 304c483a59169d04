package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Identifier   string `json:"identifier" validate:"required,max=320"`
	Password     string `json:"password" validate:"required,max=1024"`
	Remember     bool   `json:"remember"`
	Code         string `json:"code" validate:"omitempty,max=16"`
	RecoveryCode string `json:"recovery_code" validate:"omitempty,max=64"`
}

type secondFactorRequest struct {
	ChallengeID  string `json:"challenge_id" validate:"required,max=64"`
	Code         string `json:"code" validate:"required_without=RecoveryCode,omitempty,max=16"`
	RecoveryCode string `json:"recovery_code" validate:"omitempty,max=64"`
}

type resendRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required,max=64"`
}

type loginResponse struct {
	Status        string     `json:"status"`
	AccountID     string     `json:"account_id,omitempty"`
	Remember      bool       `json:"remember,omitempty"`
	Method        string     `json:"method,omitempty"`
	ChallengeID   string     `json:"challenge_id,omitempty"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
}

// Login handles POST /login.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	res, err := h.auth.Login(requestContext(c), authgate.LoginRequest{
		Identifier:   req.Identifier,
		Secret:       req.Password,
		Remember:     req.Remember,
		Code:         req.Code,
		RecoveryCode: req.RecoveryCode,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return writeResult(c, res)
}

// VerifySecondFactor handles POST /login/second-factor.
func (h *Handler) VerifySecondFactor(c echo.Context) error {
	var req secondFactorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	res, err := h.auth.VerifySecondFactor(requestContext(c), authgate.SecondFactorRequest{
		ChallengeID:  req.ChallengeID,
		Code:         req.Code,
		RecoveryCode: req.RecoveryCode,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return writeResult(c, res)
}

// Resend handles POST /login/resend.
func (h *Handler) Resend(c echo.Context) error {
	var req resendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	res, err := h.auth.ResendCode(requestContext(c), req.ChallengeID)
	if err != nil {
		return h.writeError(c, err)
	}
	return writeResult(c, res)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func writeResult(c echo.Context, res *authgate.LoginResult) error {
	switch res.Status {
	case authgate.StatusAuthenticated:
		body := loginResponse{Status: "authenticated", Remember: res.Remember}
		if res.Account != nil {
			body.AccountID = res.Account.ID
		}
		return c.JSON(http.StatusOK, body)
	case authgate.StatusChallengeRequired:
		body := loginResponse{
			Status:      "challenge_required",
			Method:      res.Method.String(),
			ChallengeID: res.ChallengeID,
		}
		if !res.CodeExpiresAt.IsZero() {
			expires := res.CodeExpiresAt.UTC()
			body.CodeExpiresAt = &expires
		}
		return c.JSON(http.StatusAccepted, body)
	default:
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal"})
	}
}
