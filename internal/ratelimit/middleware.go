package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/commandgate/internal/auth"
	"github.com/af-corp/commandgate/internal/config"
	"github.com/af-corp/commandgate/internal/httputil"
	"github.com/af-corp/commandgate/internal/telemetry"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Middleware returns chi middleware that enforces per-key RPM limits and
// the daily command quota. Anonymous callers are limited per client IP.
func Middleware(limiter *Limiter, quota *QuotaTracker, metrics *telemetry.Metrics, cfg func() config.RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rl := cfg()
			if !rl.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			reqID := w.Header().Get("X-Request-ID")
			authInfo, _ := auth.AuthFromContext(r.Context())

			rpm, bucket := resolveLimit(rl, authInfo, r.RemoteAddr)
			result, _ := limiter.Check(r.Context(), bucket, int64(rpm), time.Minute)

			// Always set rate limit headers
			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"bucket", bucket,
					"limit", rpm,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit("rpm")
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rpm, result.ResetAt.Format(time.RFC3339)))
				return
			}

			if authInfo.Authenticated() && authInfo.DailyCommandLimit != nil {
				quotaResult, _ := quota.CheckDailyQuota(r.Context(), authInfo.KeyID, int64(*authInfo.DailyCommandLimit))
				if !quotaResult.Allowed {
					slog.Warn("daily command quota exceeded",
						"request_id", reqID,
						"key_id", authInfo.KeyID,
						"executed", quotaResult.Executed,
						"limit", quotaResult.Limit,
					)
					if metrics != nil {
						metrics.RecordRateLimitHit("quota")
					}
					httputil.WriteRateLimitError(w, reqID,
						fmt.Sprintf("Daily command quota exceeded: %d of %d commands used", quotaResult.Executed, quotaResult.Limit))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveLimit picks the RPM and the bucket key for the caller: per-key
// for authenticated callers, per client IP otherwise.
func resolveLimit(rl config.RateLimitConfig, authInfo *auth.AuthInfo, remoteAddr string) (int, string) {
	if authInfo.Authenticated() {
		rpm := rl.DefaultRPM
		if authInfo.RPMLimit != nil {
			rpm = *authInfo.RPMLimit
		}
		return rpm, "rpm:" + authInfo.KeyID
	}
	return rl.AnonymousRPM, "rpm:ip:" + remoteAddr
}
