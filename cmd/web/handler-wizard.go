package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/skinwise/internal/analysis"
	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/payload"
	"github.com/myrjola/skinwise/internal/wizard"
)

const (
	wizardStateKey  = "wizard.state"
	wizardResultKey = "wizard.result"
	wizardIDKey     = "wizard.id"

	maxPatchBytes  = 1 << 20
	imageFormField = "image"
)

// inFlight tracks the wizards that are currently being submitted.
type inFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{mu: sync.Mutex{}, ids: make(map[string]struct{})}
}

// acquire marks id as submitting. It reports false when a submission for id is already running.
func (f *inFlight) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inFlight) release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}

func (f *inFlight) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[id]
	return ok
}

// wizardView is the JSON representation of the wizard. Image bytes are left out, only the slot kinds are shown.
type wizardView struct {
	OK         bool                           `json:"ok"`
	Step       wizard.Step                    `json:"step"`
	StepName   string                         `json:"stepName"`
	CanAdvance bool                           `json:"canAdvance"`
	IsFinal    bool                           `json:"isFinal"`
	Submitting bool                           `json:"submitting"`
	Answers    wizard.Answers                 `json:"answers"`
	Images     map[imageinput.Position]string `json:"images"`
}

// storedResult is the last successful wizard submission kept in the session.
type storedResult struct {
	Result json.RawMessage `json:"result"`
	ID     string          `json:"id,omitempty"`
}

type resultResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	ID     string          `json:"id,omitempty"`
}

type toggleConcernRequest struct {
	Tag string `json:"tag"`
}

func (app *application) wizardID(ctx context.Context) string {
	id := app.sessionManager.GetString(ctx, wizardIDKey)
	if id == "" {
		id = uuid.NewString()
		app.sessionManager.Put(ctx, wizardIDKey, id)
	}
	return id
}

// loadWizard restores the session's wizard. A missing or unreadable snapshot starts over.
func (app *application) loadWizard(ctx context.Context) *wizard.Machine {
	raw := app.sessionManager.GetBytes(ctx, wizardStateKey)
	if raw == nil {
		return wizard.New()
	}
	var state wizard.State
	if err := json.Unmarshal(raw, &state); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unreadable wizard state", errors.SlogError(err))
		return wizard.New()
	}
	m, err := wizard.Restore(state)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding invalid wizard state", errors.SlogError(err))
		return wizard.New()
	}
	return m
}

func (app *application) saveWizard(ctx context.Context, m *wizard.Machine) error {
	raw, err := json.Marshal(m.State())
	if err != nil {
		return errors.Wrap(err, "encode wizard state")
	}
	app.sessionManager.Put(ctx, wizardStateKey, raw)
	return nil
}

func (app *application) sessionResult(ctx context.Context) (storedResult, bool) {
	raw := app.sessionManager.GetBytes(ctx, wizardResultKey)
	if raw == nil {
		return storedResult{}, false
	}
	var result storedResult
	if err := json.Unmarshal(raw, &result); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unreadable wizard result", errors.SlogError(err))
		return storedResult{}, false
	}
	return result, true
}

func (app *application) newWizardView(ctx context.Context, m *wizard.Machine) wizardView {
	state := m.State()
	images := make(map[imageinput.Position]string, len(imageinput.Positions))
	for _, position := range imageinput.Positions {
		slot := state.Answers.Slot(position)
		images[position] = slot.Kind().String()
		*slot = imageinput.Slot{DataURI: "", File: nil}
	}
	return wizardView{
		OK:         true,
		Step:       state.Step,
		StepName:   state.Step.String(),
		CanAdvance: m.CanAdvance(),
		IsFinal:    m.IsFinal(),
		Submitting: app.submissions.has(app.wizardID(ctx)),
		Answers:    state.Answers,
		Images:     images,
	}
}

// submitting reports whether the session's wizard is being submitted and answers 409 when it is.
func (app *application) submitting(w http.ResponseWriter, r *http.Request) bool {
	if !app.submissions.has(app.wizardID(r.Context())) {
		return false
	}
	app.clientError(w, r, http.StatusConflict, "a submission is already in progress")
	return true
}

// updateWizard loads the wizard, applies change and stores the result when change succeeds.
//
// The wizard is read-only while it is being submitted.
func (app *application) updateWizard(
	w http.ResponseWriter,
	r *http.Request,
	change func(m *wizard.Machine) (status int, message string),
) {
	ctx := r.Context()
	if app.submitting(w, r) {
		return
	}
	m := app.loadWizard(ctx)
	if status, message := change(m); status != http.StatusOK {
		app.clientError(w, r, status, message)
		return
	}
	if err := app.saveWizard(ctx, m); err != nil {
		app.serverErrorJSON(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, app.newWizardView(ctx, m))
}

func (app *application) getWizard(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, app.newWizardView(r.Context(), app.loadWizard(r.Context())))
}

// patchWizard merges a JSON object of answers. Either every key is applied or none.
func (app *application) patchWizard(w http.ResponseWriter, r *http.Request) {
	var values map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPatchBytes)).Decode(&values); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "body must be a JSON object of answers")
		return
	}
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		patches, err := wizard.ParsePatches(values)
		if err == nil {
			err = m.Apply(patches...)
		}
		if err != nil {
			return http.StatusBadRequest, err.Error()
		}
		return http.StatusOK, ""
	})
}

func (app *application) toggleConcern(w http.ResponseWriter, r *http.Request) {
	var req toggleConcernRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPatchBytes)).Decode(&req); err != nil || req.Tag == "" {
		app.clientError(w, r, http.StatusBadRequest, `body must be {"tag": "<concern>"}`)
		return
	}
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		if err := m.ToggleConcern(req.Tag); err != nil {
			return http.StatusBadRequest, err.Error()
		}
		return http.StatusOK, ""
	})
}

// uploadImage places an uploaded photo into the slot named by the position path value.
func (app *application) uploadImage(w http.ResponseWriter, r *http.Request) {
	position, ok := imageinput.ParsePosition(r.PathValue("position"))
	if !ok {
		app.clientError(w, r, http.StatusNotFound, "unknown image position")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, app.cfg.MaxImageBytes+maxPatchBytes)
	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			app.clientError(w, r, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		app.clientError(w, r, http.StatusBadRequest, `upload the photo in the "image" form field`)
		return
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(file, app.cfg.MaxImageBytes+1))
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "read upload"))
		return
	}
	if int64(len(data)) > app.cfg.MaxImageBytes {
		app.clientError(w, r, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	slot := imageinput.FromFile(header.Filename, header.Header.Get("Content-Type"), data)
	if _, err = imageinput.Normalize(position, slot); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		if err = m.Apply(wizard.SetImage(position, slot)); err != nil {
			return http.StatusBadRequest, err.Error()
		}
		return http.StatusOK, ""
	})
}

func (app *application) clearImage(w http.ResponseWriter, r *http.Request) {
	position, ok := imageinput.ParsePosition(r.PathValue("position"))
	if !ok {
		app.clientError(w, r, http.StatusNotFound, "unknown image position")
		return
	}
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		if err := m.Apply(wizard.SetImage(position, imageinput.Slot{DataURI: "", File: nil})); err != nil {
			return http.StatusBadRequest, err.Error()
		}
		return http.StatusOK, ""
	})
}

func (app *application) nextStep(w http.ResponseWriter, r *http.Request) {
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		if m.IsFinal() {
			return http.StatusConflict, "already at the review step"
		}
		if !m.Advance() {
			return http.StatusConflict, "complete the current step first"
		}
		return http.StatusOK, ""
	})
}

func (app *application) previousStep(w http.ResponseWriter, r *http.Request) {
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		m.Retreat()
		return http.StatusOK, ""
	})
}

func (app *application) resetWizard(w http.ResponseWriter, r *http.Request) {
	if app.submitting(w, r) {
		return
	}
	app.sessionManager.Remove(r.Context(), wizardResultKey)
	app.updateWizard(w, r, func(m *wizard.Machine) (int, string) {
		m.Reset()
		return http.StatusOK, ""
	})
}

// submitWizard assembles the answers into a submission and runs the analysis in-process.
//
// A wizard is submitted at most once at a time. On success the answers are discarded and only the result is kept
// in the session for /api/wizard/result and /reports/latest.
func (app *application) submitWizard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := app.loadWizard(ctx)
	if !m.IsFinal() {
		app.clientError(w, r, http.StatusConflict, "review your answers before submitting")
		return
	}

	id := app.wizardID(ctx)
	if !app.submissions.acquire(id) {
		app.clientError(w, r, http.StatusConflict, "a submission is already in progress")
		return
	}
	defer app.submissions.release(id)

	answers := m.Answers()
	images, err := imageinput.NormalizeAll(answers.ImageSlots())
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	parts := make([]*imageinput.Image, 0, len(images))
	for i := range images {
		parts = append(parts, &images[i])
	}
	p := payload.Assemble(answers, parts, payload.NewMetadata(time.Now()))

	scope, err := app.blobs.NewScope()
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "new upload scope"))
		return
	}
	defer app.closeScope(ctx, scope)
	for _, image := range p.Images {
		if _, err = scope.Put(image.Filename, image.ContentType, bytes.NewReader(image.Data), app.cfg.MaxImageBytes); err != nil {
			app.analysisError(w, r, errors.Wrap(err, "spool image", slog.String("filename", image.Filename)))
			return
		}
	}

	outcome, err := app.analysis.Analyze(ctx, contexthelpers.AuthenticatedUserID(ctx),
		analysis.Submission{Fields: p.Values(), Images: scope.Blobs()})
	if err != nil {
		app.analysisError(w, r, err)
		return
	}

	result, err := json.Marshal(outcome.Report)
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "encode result"))
		return
	}
	stored, err := json.Marshal(storedResult{Result: result, ID: outcome.ReportID})
	if err != nil {
		app.serverErrorJSON(w, r, errors.Wrap(err, "encode stored result"))
		return
	}
	app.sessionManager.Put(ctx, wizardResultKey, stored)
	app.sessionManager.Remove(ctx, wizardStateKey)
	app.writeJSON(w, r, http.StatusOK, analysisResponse{OK: true, Result: outcome.Report, ID: outcome.ReportID})
}

func (app *application) wizardResult(w http.ResponseWriter, r *http.Request) {
	result, ok := app.sessionResult(r.Context())
	if !ok {
		app.clientError(w, r, http.StatusNotFound, "no analysis result yet")
		return
	}
	app.writeJSON(w, r, http.StatusOK, resultResponse{OK: true, Result: result.Result, ID: result.ID})
}
