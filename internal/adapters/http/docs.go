package http

import (
	"os"

	"github.com/gofiber/fiber/v2"
)

// OpenAPIPath locates the Critical Tracks API description, relative to the
// working directory of cmd/api.
var OpenAPIPath = "api/openapi.yaml"

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Critical Tracks API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '/docs/openapi.yaml', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`

// SetupDocs serves the snapshot and run endpoints' documentation: Swagger UI
// at /docs and the document it renders at /docs/openapi.yaml.
func SetupDocs(app *fiber.App) {
	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		data, err := os.ReadFile(OpenAPIPath)
		if err != nil {
			return newError(c, 404, "not_found", "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
