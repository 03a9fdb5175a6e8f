package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// validateBaseURL checks a --base-url override. The client appends
// /api/v2/<resource> to it, so a proxy path prefix is allowed but the API
// prefix itself is not.
func validateBaseURL(base string) error {
	base = strings.TrimSpace(base)
	if base == "" {
		return baseURLError(base, "URL cannot be empty")
	}

	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return baseURLError(base, "scheme must be http or https")
	case u.Host == "":
		return baseURLError(base, "missing host")
	case u.User != nil:
		return baseURLError(base, "embedded credentials are not used, set --email and --token")
	case u.RawQuery != "" || u.Fragment != "":
		return baseURLError(base, "must not include query or fragment")
	}

	p := strings.TrimRight(u.Path, "/")
	if strings.HasSuffix(p, "/api/v2") {
		return baseURLError(base, "drop the /api/v2 suffix, it is added to every request")
	}
	if strings.HasPrefix(p+"/", "/api/") || strings.Contains(p, "/api/v2/") {
		return baseURLError(base, "points at an API endpoint, give the account root instead")
	}
	return nil
}

func baseURLError(base, reason string) error {
	return fmt.Errorf("invalid base URL %q: %s", base, reason)
}
