package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models"
)

// QueryInt64 reads an optional positive integer query parameter.
// A missing or empty parameter yields nil.
func QueryInt64(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("%s must be a positive number", name)
	}
	return &v, nil
}

// QueryDate reads an optional "YYYY-MM-DD" query parameter.
func QueryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t := d.Time
	return &t, nil
}

// QueryBool reads a boolean query parameter, false when absent or malformed.
func QueryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// QueryFormat reads the output format, lower-cased, with a fallback.
func QueryFormat(c *gin.Context, fallback string) string {
	f := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if f == "" {
		return fallback
	}
	return f
}
