package registry

import (
	"fmt"
	"net/http"

	"pandachat/internal/providers"
	"pandachat/internal/providers/openai_compat"
)

type BuildOptions struct {
	Kind       string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func Build(opts BuildOptions) (providers.Provider, error) {
	switch opts.Kind {
	case "openai", "deepseek", "alibaba", "openai-compatible":
		return openai_compat.New(openai_compat.Config{
			BaseURL:    opts.BaseURL,
			APIKey:     opts.APIKey,
			HTTPClient: opts.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", opts.Kind)
	}
}
