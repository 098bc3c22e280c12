// internal/api/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"github.com/LuisEduardoPedra/apuraDifal/internal/api/responses"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/auth"
	"github.com/gin-gonic/gin"
)

// AuthHandler lida com as requisições de autenticação.
type AuthHandler struct {
	service auth.Service
}

// NewAuthHandler cria um novo handler de autenticação.
func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login valida as credenciais e devolve o token JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Usuário e senha são obrigatórios")
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		responses.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	responses.Success(c, gin.H{"token": token}, "Login realizado com sucesso")
}
