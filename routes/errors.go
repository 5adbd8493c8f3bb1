package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"localevents/logger"
	"localevents/services"
)

type errorReply struct {
	status  int
	message string
}

var replies = map[error]errorReply{
	services.ErrValidation:            {http.StatusUnprocessableEntity, "Invalid request data."},
	services.ErrNotFound:              {http.StatusNotFound, "Resource not found."},
	services.ErrUnknownUser:           {http.StatusNotFound, "User not found."},
	services.ErrForbidden:             {http.StatusUnauthorized, "Not authorized."},
	services.ErrConflict:              {http.StatusConflict, "Conflicting request."},
	services.ErrDuplicateReport:       {http.StatusConflict, "You already reported this event."},
	services.ErrEmailTaken:            {http.StatusUnprocessableEntity, "Email already registered."},
	services.ErrGeocodeUnavailable:    {http.StatusBadGateway, "Could not resolve the address. Try again later."},
	services.ErrInvalidOrExpiredToken: {http.StatusBadRequest, "Invalid or expired token."},
	services.ErrInvalidCredentials:    {http.StatusForbidden, "Invalid credentials."},
}

var internalReply = errorReply{http.StatusInternalServerError, "Something went wrong. Try again later."}

// respondError writes the reply for a service error. The cause never reaches
// the client; 5xx causes are logged here and every cause is attached to the
// context for the request logger.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	reply, ok := replies[kind]
	if !ok {
		reply = internalReply
		logger.Error("request failed", logger.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
	}
	_ = c.Error(err)

	body := gin.H{"message": reply.message}
	if errors.Is(kind, services.ErrValidation) {
		var se *services.Error
		if errors.As(err, &se) && se.Err != nil {
			body["error"] = se.Err.Error()
		}
	}
	c.JSON(reply.status, body)
}

// badRequest answers bodies and parameters that could not be parsed at all.
func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
}
