/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/wikirace/navigator"
	"github.com/Seednode/wikirace/wiki"
)

const (
	fallbackStart = "Albert Einstein"
	fallbackGoal  = "Pizza"
)

type RandomResponse struct {
	Start string `json:"start"`
	Goal  string `json:"goal"`
}

type LinksResponse struct {
	Title string   `json:"title"`
	Links []string `json:"links"`
}

type SearchResponse struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	return w.Write(data)
}

func serveRandom(cfg *Config, src wiki.Source, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), cfg.requestTimeout)
		defer cancel()

		status := http.StatusOK
		start, goal, err := wiki.RandomPair(ctx, src)
		if err != nil {
			logf(cfg, "SERVE: Random pair failed, using fallback: %v", err)
			status = http.StatusInternalServerError
			start, goal = fallbackStart, fallbackGoal
		}

		written, err := writeJSON(cfg, w, status, RandomResponse{Start: start, Goal: goal})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Random pair %q to %q (%s) to %s in %s",
			start,
			goal,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveLinks(cfg *Config, src wiki.Source, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		title := strings.TrimSpace(r.URL.Query().Get("title"))
		if title == "" {
			if _, err := writeJSON(cfg, w, http.StatusBadRequest, ErrorResponse{Error: "missing title"}); err != nil {
				errs <- err
			}

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.requestTimeout)
		defer cancel()

		links, err := src.Links(ctx, title)
		if err != nil {
			logf(cfg, "SERVE: Links for %q failed: %v", title, err)
			links = nil
		}

		filtered := make([]string, 0, len(links))
		for _, link := range links {
			if link != "" && !navigator.IsNamespaced(link) {
				filtered = append(filtered, link)
			}
		}

		written, err := writeJSON(cfg, w, http.StatusOK, LinksResponse{Title: title, Links: filtered})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Links for %q (%s) to %s in %s",
			title,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveSearch(cfg *Config, src wiki.Source, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		query := strings.TrimSpace(r.URL.Query().Get("q"))

		results := []string{}
		if query != "" {
			ctx, cancel := context.WithTimeout(r.Context(), cfg.requestTimeout)
			defer cancel()

			found, err := src.Search(ctx, query)
			if err != nil {
				logf(cfg, "SERVE: Search for %q failed: %v", query, err)
			} else if found != nil {
				results = found
			}
		}

		written, err := writeJSON(cfg, w, http.StatusOK, SearchResponse{Query: query, Results: results})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Search for %q (%s) to %s in %s",
			query,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func registerAPI(cfg *Config, mux *httprouter.Router, src wiki.Source, errs chan<- error) {
	mux.GET(cfg.prefix+"/api/random", serveRandom(cfg, src, errs))
	mux.GET(cfg.prefix+"/api/links", serveLinks(cfg, src, errs))
	mux.GET(cfg.prefix+"/api/search", serveSearch(cfg, src, errs))
}
