package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// responseCacheKey derives a stable key from the request fields that change
// the response. Coordinates are rounded to six decimal places (roughly 10 cm)
// so float jitter does not fragment the cache.
func responseCacheKey(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%.6f|%.6f|%d|%s", req.Query, req.Lat, req.Lng, req.RadiusM, req.Preset)
	if req.Filters != nil {
		if b, err := json.Marshal(req.Filters); err == nil {
			sb.Write(b)
		}
	}
	if req.MultiEntity != nil {
		if b, err := json.Marshal(req.MultiEntity); err == nil {
			sb.Write(b)
		}
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return "search:" + hex.EncodeToString(sum[:])[:16]
}

func (s *Service) cacheLookup(ctx context.Context, key string) (*Response, bool) {
	if s.cfg.Cache == nil {
		return nil, false
	}
	raw, err := s.cfg.Cache.Get(ctx, key)
	hit := err == nil
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(ctx, "response", hit)
	}
	if !hit {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.logger.Warn("dropping undecodable cached response", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (s *Service) cacheStore(ctx context.Context, key string, resp *Response) {
	if s.cfg.Cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cfg.Cache.Set(ctx, key, raw, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("response cache write failed", "key", key, "error", err)
	}
}
