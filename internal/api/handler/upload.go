package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/apperr"
)

// Upload stores the multipart field "file" and returns its public URL.
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		middleware.Fail(c, apperr.Validation("upload.missing", "multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		middleware.Fail(c, apperr.Validation("upload.missing", "uploaded file could not be read"))
		return
	}
	defer f.Close()

	stored, err := h.Media.Save(f, fh.Filename)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}
