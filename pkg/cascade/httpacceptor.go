package cascade

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cuemby/corestate/pkg/types"
	"github.com/gorilla/mux"
)

// Header names for the wire protocol a hard cascade crosses when its
// target instance is fronted by plain HTTP rather than an in-process
// instance.Participant: the relationship name and operation travel as
// headers, the entity as the JSON body, mirroring Envelope.
const (
	HeaderRelationship = "X-Cascade-Relationship"
	HeaderAction       = "X-Cascade-Action"
)

// NewRouter builds a gorilla/mux router exposing engine's cascades over
// HTTP: POST /cascade/{relationship} triggers TriggerCascade for the
// path's relationship name, reading the operation from
// X-Cascade-Action and the entity from the JSON body. This is
// reference wiring for a host that chooses to front an instance with
// an HTTP server; Engine itself never depends on net/http.
func NewRouter(engine *Engine) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/cascade/{relationship}", acceptHandler(engine)).Methods(http.MethodPost)
	return r
}

func acceptHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		relationship := mux.Vars(req)["relationship"]
		// The header carries Envelope.Action: "cascade-<op>", or
		// "cascade-nullify" for a nullifying delete.
		action := strings.TrimPrefix(req.Header.Get(HeaderAction), "cascade-")
		if action == "" {
			action = string(types.CascadeCreate)
		}
		if action == string(types.PolicyNullify) {
			action = string(types.CascadeDelete)
		}

		var entity map[string]any
		if err := json.NewDecoder(req.Body).Decode(&entity); err != nil {
			http.Error(w, "invalid entity body: "+err.Error(), http.StatusBadRequest)
			return
		}

		result, err := engine.TriggerCascade(relationship, types.CascadeOperation(action), entity)
		if err != nil {
			writeCascadeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func writeCascadeError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *types.RestrictedError:
		http.Error(w, err.Error(), http.StatusConflict)
	case *types.ValidationError:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

