package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"localevents/middlewares"
	"localevents/models"
	"localevents/services"
)

/* -------------------- Events -------------------- */

// eventFilter reads the optional list filters from the query string.
func eventFilter(c *gin.Context) (models.EventFilter, error) {
	f := models.EventFilter{
		City:       c.Query("city"),
		Prefecture: c.Query("prefecture"),
		Category:   c.Query("category"),
	}
	ids := map[string]*int64{
		"cityId":       &f.CityID,
		"prefectureId": &f.PrefectureID,
		"categoryId":   &f.CategoryID,
		"userId":       &f.UserID,
	}
	for name, dst := range ids {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return f, fmt.Errorf("query %s: invalid id %q", name, raw)
		}
		*dst = v
	}
	if raw := c.Query("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, fmt.Errorf("query startDate: %w", err)
		}
		f.StartDate = &t
	}
	return f, nil
}

// GET /api/events
func (d *deps) listEvents(c *gin.Context) {
	f, err := eventFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	events, err := d.Events.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /api/events/:id
func (d *deps) getEvent(c *gin.Context) {
	event, err := d.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// POST /api/events
func (d *deps) createEvent(c *gin.Context) {
	var in services.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	event, err := d.Events.Create(c.Request.Context(), in, c.GetInt64(middlewares.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	d.purgeEvent(c, "")
	c.JSON(http.StatusCreated, gin.H{"message": "Event created!", "event": event})
}

// PATCH /api/events/:id
func (d *deps) updateEvent(c *gin.Context) {
	var in services.EventUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	event, err := d.Events.Update(c.Request.Context(), id, in, c.GetInt64(middlewares.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	d.purgeEvent(c, id)
	c.JSON(http.StatusOK, gin.H{"message": "Event updated successfully!", "event": event})
}

// DELETE /api/events/:id
func (d *deps) deleteEvent(c *gin.Context) {
	id := c.Param("id")
	if err := d.Events.Delete(c.Request.Context(), id, c.GetInt64(middlewares.UserIDKey)); err != nil {
		respondError(c, err)
		return
	}

	d.purgeEvent(c, id)
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully!"})
}

/* -------------------- Reports -------------------- */

// POST /api/events/report/:id
func (d *deps) reportEvent(c *gin.Context) {
	report, err := d.Moderation.AddReport(c.Request.Context(), c.Param("id"), c.GetInt64(middlewares.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Event reported.", "report": report})
}

/* -------------------- Comments -------------------- */

// GET /api/events/:id/comments
func (d *deps) listComments(c *gin.Context) {
	comments, err := d.Comments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// POST /api/events/:id/comments
func (d *deps) addComment(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	comment, err := d.Comments.Add(c.Request.Context(), id, c.GetInt64(middlewares.UserIDKey), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	d.purgeEvent(c, id)
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added.", "comment": comment})
}

// DELETE /api/events/:id/comments/:commentId
func (d *deps) deleteComment(c *gin.Context) {
	commentID, err := strconv.ParseInt(c.Param("commentId"), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if err := d.Comments.Delete(c.Request.Context(), id, commentID, c.GetInt64(middlewares.UserIDKey)); err != nil {
		respondError(c, err)
		return
	}

	d.purgeEvent(c, id)
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted."})
}
