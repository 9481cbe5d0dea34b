package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace/internal/service"
)

// MemberHandler mantiene dependencias para endpoints de miembros.
type MemberHandler struct {
	logger  *zap.Logger
	members *service.MemberService
}

func NewMemberHandler(logger *zap.Logger, members *service.MemberService) *MemberHandler {
	return &MemberHandler{
		logger:  logger,
		members: members,
	}
}

// Signup maneja POST /members.
func (h *MemberHandler) Signup(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required"`
		Name        string `json:"name" binding:"required"`
		PhoneNumber string `json:"phone_number" binding:"required"`
		Role        string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	member, err := h.members.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	if err != nil {
		writeError(c, h.logger, "signup", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// Me maneja GET /members/me.
func (h *MemberHandler) Me(c *gin.Context) {
	member, err := h.members.GetCurrentMember(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "get current member", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

// GetMember maneja GET /members/:id.
func (h *MemberHandler) GetMember(c *gin.Context) {
	member, err := h.members.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "get member", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

// UpdateMember maneja PATCH /members/:id. Solo el propio miembro puede modificarse.
func (h *MemberHandler) UpdateMember(c *gin.Context) {
	if !h.members.MatchMemberID(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var req struct {
		Name        *string `json:"name"`
		PhoneNumber *string `json:"phone_number"`
		Password    *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update member request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	member, err := h.members.UpdateMember(c.Request.Context(), c.Param("id"), service.UpdateMemberInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		writeError(c, h.logger, "update member", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

// PasswordCheck maneja POST /members/:id/password-check.
func (h *MemberHandler) PasswordCheck(c *gin.Context) {
	if !h.members.MatchMemberID(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.members.PasswordCheck(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		writeError(c, h.logger, "password check", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
