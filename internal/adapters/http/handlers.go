package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/geowerks/specklegeo/internal/core/usecases"
	"github.com/geowerks/specklegeo/internal/pkg/metrics"
)

// queryFloat parses an optional float query parameter. Absent or empty
// returns (nil, true); a malformed value returns (nil, false).
func queryFloat(c *fiber.Ctx, name string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

// conversionRequest builds a ConversionRequest from query parameters.
func conversionRequest(c *fiber.Ctx) (*usecases.ConversionRequest, error) {
	url := strings.TrimSpace(c.Query("speckleUrl"))
	if url == "" {
		return nil, errBadRequest(c, "speckleUrl query parameter is required")
	}

	req := usecases.ConversionRequest{ModelURL: url}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errBadRequest(c, "limit must be an integer")
		}
		req.Limit = &n
	}

	req.Anchor.CRSAuthID = strings.TrimSpace(c.Query("crsAuthid"))

	var ok bool
	if req.Anchor.Lat, ok = queryFloat(c, "lat"); !ok {
		return nil, errBadRequest(c, "lat must be a number")
	}
	if req.Anchor.Lon, ok = queryFloat(c, "lon"); !ok {
		return nil, errBadRequest(c, "lon must be a number")
	}
	if req.Anchor.NorthDegrees, ok = queryFloat(c, "northDegrees"); !ok {
		return nil, errBadRequest(c, "northDegrees must be a number")
	}

	return &req, nil
}

// FeaturesHandler converts a model into a GeoJSON feature collection.
// GET /v1/features?speckleUrl=...&limit=...&crsAuthid=...&lat=...&lon=...&northDegrees=...
func FeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := conversionRequest(c)
		if err != nil {
			return err
		}

		start := time.Now()
		// The user context carries the route timeout deadline and the
		// request-scoped logger; the raw fasthttp context carries neither.
		fc, err := deps.Conversions.Convert(c.UserContext(), *req)
		if err != nil {
			metrics.ConversionsTotal.WithLabelValues("failed").Inc()
			return errDomain(c, err)
		}

		metrics.ConversionsTotal.WithLabelValues("completed").Inc()
		metrics.ConversionDuration.Observe(time.Since(start).Seconds())
		metrics.FeaturesEmitted.Add(float64(fc.NumberReturned))

		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.JSON(fc)
	}
}

// ModelInfoHandler resolves a model URL to its project, model, and root
// object without running the conversion.
// GET /v1/models/info?speckleUrl=...
func ModelInfoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url := strings.TrimSpace(c.Query("speckleUrl"))
		if url == "" {
			return errBadRequest(c, "speckleUrl query parameter is required")
		}

		info, err := deps.Conversions.ModelInfo(c.UserContext(), url)
		if err != nil {
			return errDomain(c, err)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(info)
	}
}
