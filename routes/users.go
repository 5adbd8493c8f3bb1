package routes

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"localevents/middlewares"
	"localevents/services"
)

const notificationsPageSize = 50

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err == nil && id <= 0 {
		err = fmt.Errorf("user id %d out of range", id)
	}
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return id, true
}

/* --------------------- Auth --------------------- */

// POST /api/users/signup
func (d *deps) signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, token, err := d.Accounts.Signup(c.Request.Context(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully!", "user": user, "token": token})
}

// POST /api/users/login
func (d *deps) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, token, err := d.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful!", "user": user, "token": token})
}

// GET /api/users/:id
func (d *deps) getUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	user, err := d.Accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PATCH /api/users/:id/password
func (d *deps) changePassword(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	requester := c.GetInt64(middlewares.UserIDKey)
	if _, err := d.Accounts.ChangePassword(c.Request.Context(), id, requester, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}

// GET /api/users/:id/notifications lists the mails sent to the caller.
func (d *deps) listNotifications(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	if id != c.GetInt64(middlewares.UserIDKey) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
		return
	}

	ctx := c.Request.Context()
	user, err := d.Accounts.GetUser(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := d.Deliveries.ListByRecipient(ctx, user.Email, notificationsPageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

/* ----------------- Password reset ----------------- */

// POST /api/users/reset
func (d *deps) requestReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := d.Resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered, a reset link has been sent."})
}

// GET /api/users/reset/:token
func (d *deps) resolveResetToken(c *gin.Context) {
	user, err := d.Resets.ResolveToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// POST /api/users/newpassword
func (d *deps) consumeResetToken(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		UserID   int64  `json:"userId" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := d.Resets.ConsumeToken(c.Request.Context(), req.Token, req.UserID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}
