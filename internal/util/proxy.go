// Package util carries small helpers shared by the outbound HTTP
// transports.
package util

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/zasylogic/casebridge/internal/model"
)

// ProxySelector builds the proxy function for the outbound transports.
// Explicitly configured proxy URLs win over the HTTP_PROXY/HTTPS_PROXY
// environment; hosts listed in no_proxy connect directly. Most
// deployments sit behind a corporate egress proxy but talk to the local
// downstream API directly, which is what the exemption list is for.
func ProxySelector(cfg model.HTTPConfig) func(*http.Request) (*url.URL, error) {
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" {
		return http.ProxyFromEnvironment
	}

	exempt := splitHosts(cfg.NoProxy)

	return func(req *http.Request) (*url.URL, error) {
		if hostExempt(req.URL.Hostname(), exempt) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && cfg.HTTPSProxy != "" {
			return url.Parse(cfg.HTTPSProxy)
		}
		if cfg.HTTPProxy != "" {
			return url.Parse(cfg.HTTPProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitHosts(list string) []string {
	var out []string
	for _, h := range strings.Split(list, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, strings.ToLower(h))
		}
	}
	return out
}

// hostExempt matches the host against the exemption list; a leading dot
// entry (".interna.es") matches any subdomain.
func hostExempt(host string, exempt []string) bool {
	host = strings.ToLower(host)
	for _, e := range exempt {
		if host == strings.TrimPrefix(e, ".") || strings.HasSuffix(host, e) {
			return true
		}
	}
	return false
}
