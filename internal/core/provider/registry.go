package provider

import (
	"net/http"

	"newslk/internal/logger"
)

// Credentials and collaborators needed to build the catalogue.
type Config struct {
	ReplicateAPIKey   string
	HuggingFaceAPIKey string
	DeepAIAPIKey      string
	Imagen            ImageGenerator
	HTTPClient        *http.Client
}

// Build instantiates providers in the order given by names. Unknown names
// are logged and dropped.
func Build(names []string, cfg Config) []Provider {
	log := logger.New("ProviderChain")
	var out []Provider
	for _, name := range names {
		var p Provider
		switch name {
		case "pollinations":
			p = NewPollinations(cfg.HTTPClient)
		case "deepai":
			p = NewDeepAI(cfg.DeepAIAPIKey, cfg.HTTPClient)
		case "craiyon":
			p = NewCraiyon(cfg.HTTPClient)
		case "flux-schnell":
			p = NewReplicate(FluxSchnell, cfg.ReplicateAPIKey, cfg.HTTPClient)
		case "flux-dev":
			p = NewReplicate(FluxDev, cfg.ReplicateAPIKey, cfg.HTTPClient)
		case "sdxl":
			p = NewReplicate(SDXL, cfg.ReplicateAPIKey, cfg.HTTPClient)
		case "huggingface":
			p = NewHuggingFace(cfg.HuggingFaceAPIKey, cfg.HTTPClient)
		case "imagen":
			p = NewImagen(cfg.Imagen)
		default:
			log.LogWarnf("Unknown image provider %q ignored", name)
			continue
		}
		out = append(out, p)
	}
	return out
}
