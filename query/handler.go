package query

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pgrtk-go/pgrtk"
	"github.com/sirupsen/logrus"
)

// Handler serves the query API over HTTP:
// GET /query/{source}/{contig}?begin=&end=&padding=&tol=
type Handler struct {
	Store Store
	Bmap  pgrtk.VertexToBundleMap
	Log   *logrus.Logger
}

// Router builds the gorilla/mux router exposing the query API.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/query/{source}/{contig}", h.serveQuery).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.serveHealth).Methods(http.MethodGet)
	return r
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) serveQuery(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	source, contig := vars["source"], vars["contig"]

	begin, err := parseUintParam(r, "begin", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseUintParam(r, "end", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	padding, err := parseUintParam(r, "padding", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tol, err := parseUintParam(r, "tol", 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := Query(h.Store, h.Bmap, source, contig, uint32(begin), uint32(end), uint32(padding), uint32(tol))
	if err != nil {
		h.Log.WithFields(logrus.Fields{"source": source, "contig": contig}).WithError(err).Warn("query failed")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Log.WithError(err).Error("query: encode response")
	}
}

func parseUintParam(r *http.Request, name string, def uint64) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 32)
}
