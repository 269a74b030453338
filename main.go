package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	zero "github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/ap"
	"github.com/sidereusnuntius/gomarks/internal/client"
	"github.com/sidereusnuntius/gomarks/internal/config"
	db "github.com/sidereusnuntius/gomarks/internal/db/impl"
	"github.com/sidereusnuntius/gomarks/internal/gateway"
	"github.com/sidereusnuntius/gomarks/internal/initialization"
	"github.com/sidereusnuntius/gomarks/internal/queue"
	"github.com/sidereusnuntius/gomarks/internal/resolver"
	"github.com/sidereusnuntius/gomarks/internal/state"
	"github.com/sidereusnuntius/gomarks/internal/wellknown"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	zero.Logger = zero.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	config, err := config.ReadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	d, err := initialization.OpenDB(config.DbUrl)
	if err != nil {
		log.Fatal(err)
	}
	zero.Info().Msg("database connection established")

	if os.Getenv("SETUP") != "" {
		err = initialization.SetupDB(&config, d, config.MigrationsFolder, config.DbUrl)
		if err != nil {
			log.Fatal(err)
		}
	}

	q, err := initialization.InitQueue(&config, d)
	if err != nil {
		zero.Fatal().Err(err).Msg("unable to set up the task queue")
		os.Exit(1)
	}

	ctx := context.Background()
	err = initialization.EnsureInstance(ctx, d, &config)
	if err != nil {
		log.Fatal(err)
	}

	dd := db.New(config, d)
	cl := client.New(dd, &http.Client{}, config.Url)
	res := resolver.New(dd, cl, &config)
	bus := queue.NewBus(q)
	gw := gateway.New(dd, res, &config, bus)

	queue.Register(ctx, q, gw, cl)

	state := state.State{
		DB:     dd,
		Config: config,
	}

	router := chi.NewRouter()
	ap.Mount(&state, bus, router)
	wellknown.Mount(&state, router)

	s := &http.Server{
		Addr:    ":" + strconv.Itoa(int(config.Port)),
		Handler: router,
	}

	zero.Info().Uint16("port", config.Port).Msg("started server")
	err = s.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}
