package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/pkg/api"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/runstore"
)

const CTJSON string = "application/json"

// SDK is a client of the masklab HTTP API.
type SDK interface {
	// Train trains one model and records it as a run.
	//
	// example:
	//  res, _ := sdk.Train(ctx, lab.TrainRequest{
	//    Dataset: "Iris",
	//    Model:   model.Tree,
	//    DatasetParams: runstore.DatasetParams{Mask: 20},
	//  })
	//  fmt.Println(res.RunID, *res.Accuracy)
	Train(ctx context.Context, req lab.TrainRequest) (TrainResult, error)

	// Compare re-scores trained runs on a masked copy of their dataset. A
	// comparison that fails for some models returns the partial run with
	// an error wrapping lab.ErrComparisonFailed.
	//
	// example:
	//  run, _ := sdk.Compare(ctx, lab.CompareRequest{
	//    Dataset: "Iris",
	//    Runs:    lab.Runs("1700000000", "1700000100"),
	//    Mask:    40,
	//  })
	Compare(ctx context.Context, req lab.CompareRequest) (lab.ComparisonRun, error)

	// Sweep scores model kinds across mask rates.
	Sweep(ctx context.Context, req lab.SweepRequest) (lab.SweepResult, error)

	// Runs lists trained runs, newest first.
	//
	// example:
	//  runs, _ := sdk.Runs(ctx, runstore.RunFilter{Dataset: "Iris"})
	Runs(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error)

	RenameRun(ctx context.Context, runID, name string) error

	DeleteRun(ctx context.Context, runID string) error

	// RunImages lists the public paths of the images rendered for a run.
	RunImages(ctx context.Context, runID string) ([]string, error)

	Comparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error)

	Comparison(ctx context.Context, compareID string) (runstore.Comparison, error)

	// RenameComparison sets the display name of a comparison and returns
	// the stored name, nil once cleared.
	RenameComparison(ctx context.Context, compareID, name string) (*string, error)

	DeleteComparison(ctx context.Context, compareID string) error
}

// TrainResult is a training result together with the server-side
// wall-clock time of the request.
type TrainResult struct {
	lab.TrainResult
	ExecutionTime time.Duration `json:"-"`
}

type labSDK struct {
	url    string
	client *http.Client
}

type Config struct {
	URL             string
	TLSVerification bool
	Timeout         time.Duration
}

func NewSDK(cfg Config) SDK {
	return &labSDK{
		url: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

// processRequest sends data as JSON and returns the response body. A status
// other than expectedRespCode is turned into an error carrying the server's
// message, along with the body for callers that decode failures.
func (sdk *labSDK) processRequest(ctx context.Context, method, reqURL string, data any, expectedRespCode int) ([]byte, error) {
	var payload io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, payload)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Add("Content-Type", CTJSON)
	}

	resp, err := sdk.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != expectedRespCode {
		return body, decodeError(resp.StatusCode, body)
	}

	return body, nil
}

func decodeError(status int, body []byte) error {
	var res api.ErrorRes
	msg := http.StatusText(status)
	if err := json.Unmarshal(body, &res); err == nil && res.Error.Message != "" {
		msg = res.Error.Message
		if res.Error.Details != "" {
			msg += ": " + res.Error.Details
		}
	}

	var kind error
	switch status {
	case http.StatusBadRequest:
		kind = pkgerrors.ErrValidation
	case http.StatusNotFound:
		kind = pkgerrors.ErrNotFound
	case http.StatusConflict:
		kind = pkgerrors.ErrEntityExists
	case http.StatusUnsupportedMediaType:
		kind = pkgerrors.ErrUnsupportedContentType
	default:
		return fmt.Errorf("unexpected response code %d: %s", status, msg)
	}

	return fmt.Errorf("%w: %s", kind, msg)
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, errors.Join(pkgerrors.ErrInvalidData, err)
	}

	return v, nil
}
