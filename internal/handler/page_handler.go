package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupath-id/edupath-api/pkg/response"
)

// PageHandler serves minimal payloads for the guarded page routes. The guard
// middleware handles redirects; requests reaching these handlers are allowed
// to see the page.
type PageHandler struct{}

// NewPageHandler creates a new handler.
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Dashboard is the student landing page.
func (h *PageHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	response.JSON(c, http.StatusOK, gin.H{"page": "dashboard", "user_id": claims.UserID}, nil)
}

// Admin is the staff landing page.
func (h *PageHandler) Admin(c *gin.Context) {
	claims := claimsFromContext(c)
	response.JSON(c, http.StatusOK, gin.H{"page": "admin", "user_id": claims.UserID, "role": claims.Role}, nil)
}

// LoginPage is the anonymous login page.
func (h *PageHandler) LoginPage(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"page": "login", "callback_url": c.Query("callbackUrl")}, nil)
}

// RegisterPage is the anonymous registration page.
func (h *PageHandler) RegisterPage(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"page": "register"}, nil)
}
