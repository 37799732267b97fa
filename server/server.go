package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/micropub"
	"github.com/indieinfra/quill/server/util"
	contentfactory "github.com/indieinfra/quill/storage/content/factory"
	mediafactory "github.com/indieinfra/quill/storage/media/factory"
)

// StartServer builds the storage strategies from config, wires the micropub
// endpoint and serves it until the process exits.
func StartServer(cfg *config.Config) error {
	contentStore, err := contentfactory.Create(&cfg.Content)
	if err != nil {
		return fmt.Errorf("failed to create content store: %w", err)
	}

	mediaStore, err := mediafactory.Create(&cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to create media store: %w", err)
	}

	app := NewApp(cfg, contentStore, mediaStore)

	endpoint, err := micropub.NewEndpoint(app.Callbacks(), micropub.Limits{
		MaxPayloadSize:     int64(cfg.Server.Limits.MaxPayloadSize),
		MaxFileSize:        int64(cfg.Server.Limits.MaxFileSize),
		MaxMultipartMemory: int64(cfg.Server.Limits.MaxMultipartMem),
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", requestLogging(endpoint))
	mux.Handle("/media", requestLogging(endpoint.Media()))

	bindAddress := fmt.Sprintf("%v:%v", cfg.Server.Address, cfg.Server.Port)
	log.Printf("serving http requests on %q", bindAddress)
	return http.ListenAndServe(bindAddress, mux)
}

// requestLogging places a request-scoped logger into the context for
// downstream handlers and callbacks.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := util.WithRequest(log.Default(), r, "")
		next.ServeHTTP(w, r.WithContext(util.ContextWithLogger(r.Context(), rl)))
	})
}
