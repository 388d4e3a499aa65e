package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach anything that needs
// the server handle.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	rh := RunHandler{CfgVal: d.CfgVal, RunBatch: d.RunBatch}
	mux.HandleFunc("/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Run,
	}))

	jh := JobsHandler{DB: d.DB, Hub: d.Hub}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/seed", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: jh.Seed,
	}))

	ih := ItemsHandler{DB: d.DB}
	mux.HandleFunc("/items", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.List,
	}))

	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/secret", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetClientSecret,
		http.MethodDelete: sh.DeleteClientSecret,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	return mux
}
