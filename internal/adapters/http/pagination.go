package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses. Query
// parameters other than offset and limit are carried over.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	params := url.Values{}
	for k, v := range c.Queries() {
		if k != "offset" && k != "limit" {
			params.Set(k, v)
		}
	}

	link := func(offset int, rel string) string {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("offset", fmt.Sprint(offset))
		q.Set("limit", fmt.Sprint(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, base, q.Encode(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
}
