package server

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"watchparty/internal/config"
	"watchparty/internal/rooms"
	"watchparty/internal/wshub"
)

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping default")
	}

	srv := New(rooms.NewRegistry(clockwork.NewRealClock()), wshub.NewHub(), cfg.AllowedOrigins)

	addr := "0.0.0.0:" + cfg.Port
	log.Info().Str("addr", addr).Msg("server listening")
	return http.ListenAndServe(addr, srv.Handler())
}
