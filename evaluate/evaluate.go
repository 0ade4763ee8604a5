// Package evaluate scores a fitted classifier against a labelled frame.
package evaluate

import (
	"errors"
	"fmt"

	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/frame"
	"github.com/absmach/masklab/pkg/impute"
)

type Outcome struct {
	Accuracy    float64
	Imputed     bool
	Predictions []string
}

// Evaluate predicts x and scores the predictions against y. When the
// classifier rejects missing values and x has some, x is imputed as a whole
// and prediction is retried once. Every failure wraps ErrEvaluation.
func Evaluate(c model.Classifier, x frame.Frame, y []string, imp impute.Imputer) (Outcome, error) {
	if x.NumRows() != len(y) {
		return Outcome{}, fmt.Errorf("%w: %d rows, %d labels", pkgerrors.ErrEvaluation, x.NumRows(), len(y))
	}

	pred, err := c.Predict(x)
	imputed := false
	if err != nil && errors.Is(err, model.ErrMissingValues) && x.HasMissing() && imp != nil {
		imputed = true
		pred, err = c.Predict(imp.Impute(x))
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s model: %w", pkgerrors.ErrEvaluation, c.Kind(), err)
	}

	return Outcome{
		Accuracy:    model.Accuracy(y, pred),
		Imputed:     imputed,
		Predictions: pred,
	}, nil
}
