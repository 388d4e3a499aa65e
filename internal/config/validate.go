package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate fills defaults and reports problems. Errors are fatal
// at startup (the process cannot serve any invocation); warnings are logged.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	if out.App.Port <= 0 || out.App.Port > 65535 {
		out.App.Port = 8430
	}

	out.Marketplace.APIBase = strings.TrimRight(strings.TrimSpace(out.Marketplace.APIBase), "/")
	if out.Marketplace.APIBase == "" {
		out.Marketplace.APIBase = DefaultAPIBase
	}
	if !strings.HasPrefix(out.Marketplace.APIBase, "http://") && !strings.HasPrefix(out.Marketplace.APIBase, "https://") {
		res.addErr("marketplace.api_base %q is not an http(s) URL", out.Marketplace.APIBase)
	}

	out.Marketplace.Country = strings.ToUpper(strings.TrimSpace(out.Marketplace.Country))
	if out.Marketplace.Country == "" {
		out.Marketplace.Country = DefaultCountry
	}
	if len(out.Marketplace.Country) != 2 {
		res.addErr("marketplace.country %q must be a two-letter code", out.Marketplace.Country)
	}

	if strings.TrimSpace(out.Marketplace.UserAgent) == "" {
		out.Marketplace.UserAgent = DefaultUserAgent
	}
	if out.Marketplace.RequestsPerSec <= 0 {
		out.Marketplace.RequestsPerSec = 2
	}
	if out.Marketplace.Burst <= 0 {
		out.Marketplace.Burst = 4
	}

	if out.Worker.Batch <= 0 {
		out.Worker.Batch = DefaultBatch
	}
	if out.Worker.Limit <= 0 {
		out.Worker.Limit = DefaultLimit
	}
	if out.Worker.Limit > 200 {
		res.addWarn("worker.limit %d exceeds the marketplace page cap, calls may be truncated server-side", out.Worker.Limit)
	}
	if out.Worker.RunSeconds < 0 {
		out.Worker.RunSeconds = 0
	}
	if out.Worker.RunSeconds > 0 && out.Worker.RunSeconds < 10 {
		res.addWarn("worker.run_seconds %d is aggressive for a rate-limited API", out.Worker.RunSeconds)
	}

	if out.ClientID() == "" {
		res.addWarn("no OAuth client id configured (oauth.client_id or MELI_CLIENT_ID); seller-mode token refresh will fail")
	}

	return out, res
}
