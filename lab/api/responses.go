package api

import (
	"net/http"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/pkg/api"
	"github.com/absmach/masklab/runstore"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*trainResponse)(nil)
	_ supermq.Response = (*compareResponse)(nil)
	_ supermq.Response = (*compareFailedResponse)(nil)
	_ supermq.Response = (*sweepResponse)(nil)
	_ supermq.Response = (*listRunsResponse)(nil)
	_ supermq.Response = (*listComparisonsResponse)(nil)
	_ supermq.Response = (*comparisonResponse)(nil)
	_ supermq.Response = (*imagesResponse)(nil)
	_ supermq.Response = (*renameResponse)(nil)
	_ supermq.Response = (*successResponse)(nil)
)

type trainData struct {
	lab.TrainResult
	ExecutionTime int64 `json:"executionTime"`
}

type trainResponse struct {
	Success bool      `json:"success"`
	Data    trainData `json:"data"`
}

func (t trainResponse) Code() int {
	return http.StatusCreated
}

func (t trainResponse) Headers() map[string]string {
	return map[string]string{}
}

func (t trainResponse) Empty() bool {
	return false
}

type compareResponse struct {
	lab.ComparisonRun
}

func (c compareResponse) Code() int {
	return http.StatusOK
}

func (c compareResponse) Headers() map[string]string {
	return map[string]string{}
}

func (c compareResponse) Empty() bool {
	return false
}

// compareFailedResponse keeps the partial per-model results of a comparison
// that could not score every model.
type compareFailedResponse struct {
	Success      bool                   `json:"success"`
	Error        api.ErrorBody          `json:"error"`
	ModelColumns map[string][]string    `json:"modelColumns,omitempty"`
	Models       []runstore.ModelResult `json:"models"`
}

func (c compareFailedResponse) Code() int {
	return http.StatusInternalServerError
}

func (c compareFailedResponse) Headers() map[string]string {
	return map[string]string{}
}

func (c compareFailedResponse) Empty() bool {
	return false
}

type sweepResponse struct {
	lab.SweepResult
}

func (s sweepResponse) Code() int {
	return http.StatusOK
}

func (s sweepResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s sweepResponse) Empty() bool {
	return false
}

type listRunsResponse struct {
	Runs []runstore.RunSummary `json:"runs"`
}

func (l listRunsResponse) Code() int {
	return http.StatusOK
}

func (l listRunsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRunsResponse) Empty() bool {
	return false
}

type listComparisonsResponse struct {
	Runs []runstore.ComparisonSummary `json:"runs"`
}

func (l listComparisonsResponse) Code() int {
	return http.StatusOK
}

func (l listComparisonsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listComparisonsResponse) Empty() bool {
	return false
}

type comparisonResponse struct {
	runstore.Comparison
}

func (c comparisonResponse) Code() int {
	return http.StatusOK
}

func (c comparisonResponse) Headers() map[string]string {
	return map[string]string{}
}

func (c comparisonResponse) Empty() bool {
	return false
}

type imagesResponse struct {
	Images []string `json:"images"`
}

func (i imagesResponse) Code() int {
	return http.StatusOK
}

func (i imagesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (i imagesResponse) Empty() bool {
	return false
}

type renameResponse struct {
	Success bool    `json:"success"`
	Name    *string `json:"name"`
}

func (r renameResponse) Code() int {
	return http.StatusOK
}

func (r renameResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r renameResponse) Empty() bool {
	return false
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s successResponse) Code() int {
	return http.StatusOK
}

func (s successResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s successResponse) Empty() bool {
	return false
}
