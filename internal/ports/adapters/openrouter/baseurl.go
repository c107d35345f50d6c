package openrouter

import "github.com/forPelevin/voxdub/internal/ports/adapters/endpoint"

const defaultBaseURL = "https://openrouter.ai"

var BaseURLPolicy = endpoint.Policy{
	Setting:      "OPENROUTER_BASE_URL",
	HostsSetting: "OPENROUTER_ALLOWED_HOSTS",
	DefaultURL:   defaultBaseURL,
	DefaultHosts: []string{"openrouter.ai", "api.openrouter.ai"},
}

func normalizeBaseURL(baseURL string) string {
	return BaseURLPolicy.Normalize(baseURL)
}

func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	return BaseURLPolicy.Validate(baseURL, allowedHosts)
}
