package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/weatherbox/internal/logutil"
)

// Serve runs the server until ctx is cancelled, then shuts it down and
// runs every onShutdown hook in order.
func Serve(ctx context.Context, bind string, handler http.Handler, onShutdown ...func() error) error {
	server := http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       time.Second * 30,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: time.Second * 10,
		IdleTimeout:       time.Minute * 5,
	}
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, err, done)
	<-done
	firstErr := <-err
	log := logutil.GetOrDefault(ctx)
	for _, fn := range onShutdown {
		if herr := fn(); herr != nil {
			log.Error().Err(herr).Msg("Shutdown hook failed")
			if firstErr == nil {
				firstErr = herr
			}
		}
	}
	return firstErr
}

func serveInBackground(ctx context.Context, server *http.Server, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		defer cancel()
		log.Info().Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			// shutdown called,
			// ignore the error
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Minute)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
		log.Info().Msg("Shutdown completed")
	}
	<-stopped
	close(firstErr)
}
