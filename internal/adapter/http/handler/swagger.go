package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>EDU Ledger API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="docs"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>SwaggerUIBundle({ url: '/swagger/spec', dom_id: '#docs' });</script>
</body>
</html>`

// registerDocs mounts the OpenAPI document and a viewer for it. Nothing is
// mounted when no document was loaded.
func registerDocs(r gin.IRouter, spec []byte) {
	if len(spec) == 0 {
		return
	}
	docs := r.Group("/swagger")
	docs.GET("", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
	})
	docs.GET("/spec", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", spec)
	})
}
