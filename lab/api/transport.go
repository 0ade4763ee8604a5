package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/pkg/api"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/runstore"
	"github.com/absmach/supermq"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const svcName = "masklab"

// MakeHandler serves the lab API and the rendered images under outputDir.
func MakeHandler(svc lab.Service, logger *slog.Logger, instanceID, outputDir string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/train", otelhttp.NewHandler(kithttp.NewServer(
		trainEndpoint(svc),
		decodeJSON[trainReq],
		api.EncodeResponse,
		opts...,
	), "train").ServeHTTP)

	mux.Post("/sweep", otelhttp.NewHandler(kithttp.NewServer(
		sweepEndpoint(svc),
		decodeJSON[sweepReq],
		api.EncodeResponse,
		opts...,
	), "sweep").ServeHTTP)

	mux.Post("/rename", otelhttp.NewHandler(kithttp.NewServer(
		renameRunEndpoint(svc),
		decodeJSON[renameRunReq],
		api.EncodeResponse,
		opts...,
	), "rename-run").ServeHTTP)

	mux.Get("/images", otelhttp.NewHandler(kithttp.NewServer(
		runImagesEndpoint(svc),
		decodeQueryEntityReq("runId"),
		api.EncodeResponse,
		opts...,
	), "run-images").ServeHTTP)

	mux.Route("/history", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListRunsReq,
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)
		r.Delete("/{runID}", otelhttp.NewHandler(kithttp.NewServer(
			deleteRunEndpoint(svc),
			decodeEntityReq("runID"),
			api.EncodeResponse,
			opts...,
		), "delete-run").ServeHTTP)
	})

	mux.Route("/compare", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			compareEndpoint(svc),
			decodeJSON[compareReq],
			api.EncodeResponse,
			opts...,
		), "compare").ServeHTTP)
		r.Post("/rename", otelhttp.NewHandler(kithttp.NewServer(
			renameComparisonEndpoint(svc),
			decodeJSON[renameComparisonReq],
			api.EncodeResponse,
			opts...,
		), "rename-comparison").ServeHTTP)
		r.Route("/history", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				listComparisonsEndpoint(svc),
				decodeListComparisonsReq,
				api.EncodeResponse,
				opts...,
			), "list-comparisons").ServeHTTP)
			r.Get("/{compareID}", otelhttp.NewHandler(kithttp.NewServer(
				getComparisonEndpoint(svc),
				decodeEntityReq("compareID"),
				api.EncodeResponse,
				opts...,
			), "get-comparison").ServeHTTP)
			r.Delete("/{compareID}", otelhttp.NewHandler(kithttp.NewServer(
				deleteComparisonEndpoint(svc),
				decodeEntityReq("compareID"),
				api.EncodeResponse,
				opts...,
			), "delete-comparison").ServeHTTP)
		})
	})

	mux.Handle(runstore.URLPrefix+"/*", http.StripPrefix(runstore.URLPrefix+"/", http.FileServer(http.Dir(outputDir))))
	mux.Get("/health", supermq.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeJSON[T any](_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrUnsupportedContentType)
	}

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(pkgerrors.ErrValidation, err)
	}

	return req, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeQueryEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: r.URL.Query().Get(key),
		}, nil
	}
}

func decodeListRunsReq(_ context.Context, r *http.Request) (any, error) {
	q := r.URL.Query()

	return listRunsReq{
		model:   q.Get("model"),
		dataset: q.Get("dataset"),
	}, nil
}

func decodeListComparisonsReq(_ context.Context, r *http.Request) (any, error) {
	return listComparisonsReq{
		dataset: r.URL.Query().Get("dataset"),
	}, nil
}
