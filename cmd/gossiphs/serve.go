package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/73ai/gossiphs/internal/query"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the graph once and serve it over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/", handleRoot)
		mux.HandleFunc("/file/list", handleFileList(svc))
		mux.HandleFunc("/file/metadata", handleFileMetadata(svc))
		mux.HandleFunc("/file/relation", handleFileRelation(svc))
		mux.HandleFunc("/symbol/relation", handleSymbolRelation(svc))
		mux.HandleFunc("/symbol/metadata", handleSymbolMetadata(svc))

		addr := fmt.Sprintf("127.0.0.1:%d", servePort)
		logger := newLogger()
		logger.Info().Str("addr", addr).Msg("serving query API")
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 9411, "listen port")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Version string `json:"version"`
	}{Version: version})
}

func handleFileList(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Files())
	}
}

func handleFileMetadata(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.FileMetadata(r.URL.Query().Get("path")))
	}
}

func handleFileRelation(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.RelatedFiles(r.URL.Query().Get("path")))
	}
}

func handleSymbolRelation(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		startByte, err := strconv.ParseUint(q.Get("start_byte"), 10, 64)
		if err != nil {
			writeJSON(w, map[string]int{})
			return
		}
		sym, ok := svc.SymbolAt(q.Get("path"), uint(startByte))
		if !ok {
			writeJSON(w, map[string]int{})
			return
		}

		out := make(map[string]int)
		for _, neighbor := range svc.RelatedSymbols(sym) {
			out[neighbor.Symbol.ID] = neighbor.Weight
		}
		writeJSON(w, out)
	}
}

func handleSymbolMetadata(svc *query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sym, ok := svc.SymbolByID(r.URL.Query().Get("id"))
		if !ok {
			writeJSON(w, nil)
			return
		}
		writeJSON(w, sym)
	}
}
