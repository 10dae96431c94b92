// Binary executor receives webhook notifications and logs them without placing live orders.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"quotebot-go/internal/execution"
	"quotebot-go/internal/util"
)

func main() {
	log := util.WithApp(util.NewLogger(os.Getenv("LOG_LEVEL")), "executor", "")
	addr := os.Getenv("EXECUTOR_ADDR")
	if addr == "" {
		addr = ":9000"
	}

	router := mux.NewRouter()
	router.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		var note execution.Notification
		if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
			http.Error(w, "invalid notification", http.StatusBadRequest)
			return
		}
		if note.Instrument == "" || note.Direction == "" {
			http.Error(w, "epic and direction required", http.StatusUnprocessableEntity)
			return
		}
		log.Info().
			Str("epic", note.Instrument).
			Str("hook", note.HookName).
			Str("direction", string(note.Direction)).
			Float64("amount", note.Amount).
			Float64("profit", note.Profit).
			Float64("loss", note.Loss).
			Float64("trail_sl", note.TrailSL).
			Str("exit_criteria", strings.Join(note.ExitCriteria, ",")).
			Msg("order notification received (not executed)")
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	log.Info().Str("addr", addr).Msg("executor stub listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("executor stopped")
	}
}
