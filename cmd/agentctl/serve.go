package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"aries-agent-core/internal/didcomm/dispatch"
)

// inboxStore is a process-local stand-in for a mediator's forwarding queue:
// messages POSTed to /inbox/{sourceID} accumulate here and GET returns a
// copy of them; nothing removes a message once stored (spec §4.6/§5:
// "inbox polling is external").
type inboxStore struct {
	mu   sync.Mutex
	byID map[string][]dispatch.RawMessage
}

func newInboxStore() *inboxStore {
	return &inboxStore{byID: map[string][]dispatch.RawMessage{}}
}

func (s *inboxStore) push(sourceID string, msg dispatch.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sourceID] = append(s.byID[sourceID], msg)
}

func (s *inboxStore) list(sourceID string) []dispatch.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dispatch.RawMessage, len(s.byID[sourceID]))
	copy(out, s.byID[sourceID])
	return out
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a mediator-style HTTP inbox for inbound DIDComm forwarding",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newInboxStore()
			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)

			r.Post("/inbox/{sourceID}", func(w http.ResponseWriter, r *http.Request) {
				sourceID := chi.URLParam(r, "sourceID")
				var msg dispatch.RawMessage
				if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				store.push(sourceID, msg)
				w.WriteHeader(http.StatusAccepted)
			})
			r.Get("/inbox/{sourceID}", func(w http.ResponseWriter, r *http.Request) {
				sourceID := chi.URLParam(r, "sourceID")
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(store.list(sourceID))
			})

			log.WithField("addr", addr).Info("agentctl: mediator inbox listening")
			return http.ListenAndServe(addr, r)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
