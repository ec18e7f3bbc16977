package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tradeviz/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON body")

// decodeTradeQuery reads the trade filter from a JSON body. An empty body
// decodes as an empty query so the missing-parameter check can name the fields.
func decodeTradeQuery(w http.ResponseWriter, r *http.Request) (core.TradeQuery, error) {
	var q core.TradeQuery
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		return core.TradeQuery{}, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return sanitizeQuery(q), nil
}

// queryFromValues reads the trade filter from URL query parameters.
func queryFromValues(v url.Values) core.TradeQuery {
	return sanitizeQuery(core.TradeQuery{
		Country:   v.Get("country"),
		TradeType: v.Get("tradeType"),
		Category:  v.Get("category"),
	})
}

func sanitizeQuery(q core.TradeQuery) core.TradeQuery {
	return core.TradeQuery{
		Country:   sanitizeInput(q.Country),
		TradeType: sanitizeInput(q.TradeType),
		Category:  sanitizeInput(q.Category),
	}
}

// parseHidden parses a comma separated list of segment indices ("0,3").
func parseHidden(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i, err := strconv.Atoi(p)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid segment index %q", p)
		}
		out = append(out, i)
	}
	return out, nil
}

// parseLimit reads a positive limit, falling back to def.
func parseLimit(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
