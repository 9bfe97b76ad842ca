package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/calcvoice/calcvoice/internal/eventlog"
	"github.com/calcvoice/calcvoice/internal/intent"
	"github.com/calcvoice/calcvoice/internal/store"
)

// importSchema validates bulk corpus uploads before anything touches the
// database. The label enum must match intent.Labels.
const importSchema = `{
	"type": "object",
	"required": ["samples"],
	"properties": {
		"samples": {
			"type": "array",
			"minItems": 1,
			"maxItems": 5000,
			"items": {
				"type": "object",
				"required": ["text", "label"],
				"properties": {
					"text": {"type": "string", "minLength": 1, "maxLength": 500},
					"label": {
						"type": "string",
						"enum": ["expression", "calculate", "clear", "backspace", "stop", "noop"]
					}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

var compiledImportSchema = jsonschema.MustCompileString("import.schema.json", importSchema)

func (r *Router) handleTrainingLabels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"labels": intent.Labels})
}

func (r *Router) handleListSamples(w http.ResponseWriter, req *http.Request) {
	samples, err := r.store.ListTrainingSamples(req.Context())
	if err != nil {
		captureError(req, err, "failed to list training samples")
		writeError(w, http.StatusInternalServerError, "failed to list samples")
		return
	}
	if samples == nil {
		samples = []store.TrainingSample{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": samples})
}

func (r *Router) handleAddSample(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.Text = strings.TrimSpace(body.Text)
	if body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !intent.ValidLabel(body.Label) {
		writeError(w, http.StatusBadRequest, "unsupported label: "+body.Label)
		return
	}

	id, err := r.store.InsertTrainingSample(req.Context(), store.TrainingSample{
		Text:  body.Text,
		Label: body.Label,
	})
	if err != nil {
		captureError(req, err, "failed to insert training sample")
		writeError(w, http.StatusInternalServerError, "failed to store sample")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (r *Router) handleDeleteSample(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sample id")
		return
	}
	if err := r.store.DeleteTrainingSample(req.Context(), id); err != nil {
		if err == pgx.ErrNoRows {
			writeError(w, http.StatusNotFound, "sample not found")
			return
		}
		captureError(req, err, "failed to delete training sample")
		writeError(w, http.StatusInternalServerError, "failed to delete sample")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleImportSamples(w http.ResponseWriter, req *http.Request) {
	var payload any
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := compiledImportSchema.Validate(payload); err != nil {
		writeError(w, http.StatusBadRequest, "schema validation failed: "+err.Error())
		return
	}

	// Re-decode into the typed shape now that the schema passed.
	raw, _ := json.Marshal(payload)
	var body struct {
		Samples []store.TrainingSample `json:"samples"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inserted, err := r.store.InsertTrainingSamples(req.Context(), body.Samples, store.SourceImport)
	if err != nil {
		captureError(req, err, "failed to import training samples")
		writeError(w, http.StatusInternalServerError, "failed to import samples")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"received": len(body.Samples),
		"inserted": inserted,
	})
}

// handleRetrain rebuilds the classifier from the stored corpus and swaps
// it into the live interpreter without interrupting the session.
func (r *Router) handleRetrain(w http.ResponseWriter, req *http.Request) {
	count, err := r.retrain.Retrain(req.Context())
	if err != nil {
		captureError(req, err, "retrain failed")
		writeError(w, http.StatusInternalServerError, "retrain failed")
		return
	}
	if r.eventLog != nil {
		r.eventLog.LogAsync(r.engine.SessionID(), eventlog.EventModelRetrained, map[string]any{"samples": count})
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": count})
}
