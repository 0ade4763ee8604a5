package model

import (
	"encoding/gob"
	"fmt"
	"io"
)

// ArtifactExt is the file extension of encoded classifiers.
const ArtifactExt = ".gob"

func init() {
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&GradientBoosting{})
	gob.Register(&HistGradientBoosting{})
}

type envelope struct {
	Kind  Kind
	Model Classifier
}

// Encode writes c as a self-describing gob artifact.
func Encode(w io.Writer, c Classifier) error {
	if err := gob.NewEncoder(w).Encode(envelope{Kind: c.Kind(), Model: c}); err != nil {
		return fmt.Errorf("failed to encode %s model: %w", c.Kind(), err)
	}

	return nil
}

// Decode reads an artifact written by Encode.
func Decode(r io.Reader) (Classifier, error) {
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if env.Model == nil {
		return nil, fmt.Errorf("failed to decode model: empty artifact")
	}
	if env.Model.Kind() != env.Kind {
		return nil, fmt.Errorf("failed to decode model: artifact says %s, holds %s", env.Kind, env.Model.Kind())
	}

	return env.Model, nil
}
