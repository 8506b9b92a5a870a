package api

import (
	"net/http"

	"github.com/JaimeStill/microfinder/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	requireSession := domain.Auth.RequireSession

	analysisRoutes := domain.Analysis.Routes()
	analysisRoutes.Wrap = requireSession

	profileRoutes := domain.Profiles.Handler().Routes()
	profileRoutes.Wrap = requireSession

	routes.Register(
		mux,
		domain.Auth.Routes(),
		profileRoutes,
		analysisRoutes,
		domain.Discoveries.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)
}
