package api

import (
	"net/http"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/config"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	recordsHandler := domain.Records.Handler()

	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Collections.Handler().Routes(),
		recordsHandler.Routes(),
		recordsHandler.CollectionRoutes(),
		domain.Sessions.Handler().Routes(),
	)
}
