package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/pkg/api"
	"github.com/absmach/masklab/runstore"
)

const (
	compareEndpoint        = "/compare"
	compareHistoryEndpoint = "/compare/history"
	compareRenameEndpoint  = "/compare/rename"
)

type compareFailure struct {
	Error        api.ErrorBody          `json:"error"`
	ModelColumns map[string][]string    `json:"modelColumns"`
	Models       []runstore.ModelResult `json:"models"`
}

func (sdk *labSDK) Compare(ctx context.Context, req lab.CompareRequest) (lab.ComparisonRun, error) {
	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.url+compareEndpoint, req, http.StatusOK)
	if err != nil {
		// A failed comparison still reports the models it scored.
		if f, derr := decode[compareFailure](body); derr == nil && f.Models != nil {
			run := lab.ComparisonRun{
				Dataset:      req.Dataset,
				Mask:         req.Mask,
				Impute:       req.Impute,
				ModelColumns: f.ModelColumns,
				Models:       f.Models,
			}

			detail := strings.TrimPrefix(f.Error.Message, lab.ErrComparisonFailed.Error()+": ")
			if f.Error.Details != "" {
				detail += "\n" + f.Error.Details
			}

			return run, fmt.Errorf("%w: %s", lab.ErrComparisonFailed, detail)
		}

		return lab.ComparisonRun{}, err
	}

	return decode[lab.ComparisonRun](body)
}

func (sdk *labSDK) Comparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error) {
	reqURL := sdk.url + compareHistoryEndpoint
	if dataset != "" {
		reqURL += "?" + url.Values{"dataset": {dataset}}.Encode()
	}

	body, err := sdk.processRequest(ctx, http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	page, err := decode[struct {
		Runs []runstore.ComparisonSummary `json:"runs"`
	}](body)
	if err != nil {
		return nil, err
	}

	return page.Runs, nil
}

func (sdk *labSDK) Comparison(ctx context.Context, compareID string) (runstore.Comparison, error) {
	reqURL := sdk.url + compareHistoryEndpoint + "/" + url.PathEscape(compareID)

	body, err := sdk.processRequest(ctx, http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return runstore.Comparison{}, err
	}

	return decode[runstore.Comparison](body)
}

func (sdk *labSDK) RenameComparison(ctx context.Context, compareID, name string) (*string, error) {
	req := map[string]any{"compareId": compareID, "name": name}

	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.url+compareRenameEndpoint, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	res, err := decode[struct {
		Name *string `json:"name"`
	}](body)
	if err != nil {
		return nil, err
	}

	return res.Name, nil
}

func (sdk *labSDK) DeleteComparison(ctx context.Context, compareID string) error {
	reqURL := sdk.url + compareHistoryEndpoint + "/" + url.PathEscape(compareID)
	_, err := sdk.processRequest(ctx, http.MethodDelete, reqURL, nil, http.StatusOK)

	return err
}
