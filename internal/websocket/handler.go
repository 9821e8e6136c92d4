package websocket

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/adoptrack/internal/model"

	ws "github.com/coder/websocket"
)

// HandleFeed upgrades staff connections and streams hub events to them.
// ?species=dog|cat narrows the feed to one shelter.
func HandleFeed(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var species model.Species
		if q := r.URL.Query().Get("species"); q != "" {
			sp, err := model.ParseSpecies(q)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			species = sp
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}

		NewClient(hub, conn, species).Run(r.Context())
	}
}
