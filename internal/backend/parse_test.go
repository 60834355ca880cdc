package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/betelcare/internal/domain"
)

func TestParseDiagnosis(t *testing.T) {
	raw := `{"severity":"Severe Rot","advice":"Remove affected leaves","top_predictions":[{"label":"Leaf Blight","confidence":92},{"label":"Healthy","confidence":8}],"status":"success"}`

	result, err := ParseDiagnosis(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Severe Rot", result.Severity)
	assert.Equal(t, "Remove affected leaves", result.Advice)
	assert.Equal(t, []domain.Prediction{
		{Label: "Leaf Blight", Confidence: 92},
		{Label: "Healthy", Confidence: 8},
	}, result.TopPredictions)
}

func TestParseDiagnosisSortsDescending(t *testing.T) {
	raw := `{"severity":"Mild Infection","advice":"a","top_predictions":[{"label":"Healthy","confidence":10.5},{"label":"Leaf_Spot","confidence":61.2},{"label":"Leaf_Rot","confidence":28.3}]}`

	result, err := ParseDiagnosis(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, result.TopPredictions, 3)
	assert.Equal(t, "Leaf_Spot", result.Primary().Label)
	assert.Equal(t, "Leaf_Rot", result.TopPredictions[1].Label)
	assert.Equal(t, "Healthy", result.TopPredictions[2].Label)
}

func TestParseDiagnosisRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `<html>Internal Server Error</html>`},
		{"error body", `{"error":"Invalid file type"}`},
		{"missing severity", `{"advice":"a","top_predictions":[{"label":"x","confidence":1}]}`},
		{"missing advice", `{"severity":"s","top_predictions":[{"label":"x","confidence":1}]}`},
		{"missing predictions", `{"severity":"s","advice":"a"}`},
		{"empty predictions", `{"severity":"s","advice":"a","top_predictions":[]}`},
		{"missing label", `{"severity":"s","advice":"a","top_predictions":[{"confidence":1}]}`},
		{"blank label", `{"severity":"s","advice":"a","top_predictions":[{"label":" ","confidence":1}]}`},
		{"missing confidence", `{"severity":"s","advice":"a","top_predictions":[{"label":"x"}]}`},
		{"confidence too high", `{"severity":"s","advice":"a","top_predictions":[{"label":"x","confidence":100.5}]}`},
		{"negative confidence", `{"severity":"s","advice":"a","top_predictions":[{"label":"x","confidence":-1}]}`},
		{"wrong type", `{"severity":3,"advice":"a","top_predictions":[{"label":"x","confidence":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDiagnosis(strings.NewReader(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseReply(t *testing.T) {
	reply, err := ParseReply(strings.NewReader(`{"reply":"Water less"}`))
	require.NoError(t, err)
	assert.Equal(t, "Water less", reply)

	_, err = ParseReply(strings.NewReader(`{"answer":"Water less"}`))
	assert.Error(t, err)

	_, err = ParseReply(strings.NewReader(`{"reply":42}`))
	assert.Error(t, err)

	_, err = ParseReply(strings.NewReader(``))
	assert.Error(t, err)
}

func TestErrorClassification(t *testing.T) {
	ne := &NetworkError{Op: "predict", Err: assert.AnError}
	pe := &ProtocolError{Op: "chat", Status: 500, Err: assert.AnError}

	assert.True(t, IsNetwork(ne))
	assert.False(t, IsProtocol(ne))
	assert.True(t, IsProtocol(pe))
	assert.ErrorIs(t, pe, assert.AnError)
	assert.Contains(t, pe.Error(), "status 500")
	assert.Contains(t, ne.Error(), "network error")
}
