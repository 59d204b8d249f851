package handlers

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

// PagesHandler serves the static HTML pages of the UI.
type PagesHandler struct {
	pages fs.FS
}

func NewPagesHandler(pages fs.FS) *PagesHandler {
	return &PagesHandler{pages: pages}
}

// Page returns a handler that writes the named page.
func (h *PagesHandler) Page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := fs.ReadFile(h.pages, name)
		if err != nil {
			c.String(http.StatusNotFound, "page not found")
			return
		}
		c.Data(http.StatusOK, htmlContentType, data)
	}
}
