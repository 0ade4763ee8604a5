package sdk

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/runstore"
)

const (
	trainEndpoint   = "/train"
	sweepEndpoint   = "/sweep"
	renameEndpoint  = "/rename"
	imagesEndpoint  = "/images"
	historyEndpoint = "/history"
)

type trainEnvelope struct {
	Data struct {
		lab.TrainResult
		ExecutionTime int64 `json:"executionTime"`
	} `json:"data"`
}

func (sdk *labSDK) Train(ctx context.Context, req lab.TrainRequest) (TrainResult, error) {
	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.url+trainEndpoint, req, http.StatusCreated)
	if err != nil {
		return TrainResult{}, err
	}

	env, err := decode[trainEnvelope](body)
	if err != nil {
		return TrainResult{}, err
	}

	return TrainResult{
		TrainResult:   env.Data.TrainResult,
		ExecutionTime: time.Duration(env.Data.ExecutionTime) * time.Millisecond,
	}, nil
}

func (sdk *labSDK) Sweep(ctx context.Context, req lab.SweepRequest) (lab.SweepResult, error) {
	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.url+sweepEndpoint, req, http.StatusOK)
	if err != nil {
		return lab.SweepResult{}, err
	}

	return decode[lab.SweepResult](body)
}

func (sdk *labSDK) Runs(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error) {
	q := url.Values{}
	if filter.Model != "" {
		q.Set("model", filter.Model)
	}
	if filter.Dataset != "" {
		q.Set("dataset", filter.Dataset)
	}
	reqURL := sdk.url + historyEndpoint
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	body, err := sdk.processRequest(ctx, http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	page, err := decode[struct {
		Runs []runstore.RunSummary `json:"runs"`
	}](body)
	if err != nil {
		return nil, err
	}

	return page.Runs, nil
}

func (sdk *labSDK) RenameRun(ctx context.Context, runID, name string) error {
	req := map[string]string{"runId": runID, "name": name}
	_, err := sdk.processRequest(ctx, http.MethodPost, sdk.url+renameEndpoint, req, http.StatusOK)

	return err
}

func (sdk *labSDK) DeleteRun(ctx context.Context, runID string) error {
	reqURL := sdk.url + historyEndpoint + "/" + url.PathEscape(runID)
	_, err := sdk.processRequest(ctx, http.MethodDelete, reqURL, nil, http.StatusOK)

	return err
}

func (sdk *labSDK) RunImages(ctx context.Context, runID string) ([]string, error) {
	reqURL := sdk.url + imagesEndpoint + "?" + url.Values{"runId": {runID}}.Encode()

	body, err := sdk.processRequest(ctx, http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	res, err := decode[struct {
		Images []string `json:"images"`
	}](body)
	if err != nil {
		return nil, err
	}

	return res.Images, nil
}
