package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/skinwise/internal/e2etest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heldUpstream is a chat completion endpoint that answers only after release is called.
type heldUpstream struct {
	url     string
	started chan struct{}
	release func()
}

func newHeldUpstream(t *testing.T) *heldUpstream {
	t.Helper()
	var (
		startOnce, releaseOnce sync.Once
		started                = make(chan struct{})
		released               = make(chan struct{})
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startOnce.Do(func() { close(started) })
		select {
		case <-released:
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": sampleRoutine},
				"finish_reason": "stop",
			}},
		}))
	}))
	release := func() { releaseOnce.Do(func() { close(released) }) }
	t.Cleanup(srv.Close)
	t.Cleanup(release)
	return &heldUpstream{url: srv.URL + "/v1", started: started, release: release}
}

// walkToReview answers every step with one patch and advances to the review step.
func walkToReview(t *testing.T, ctx context.Context, client *e2etest.Client) {
	t.Helper()
	const image = "data:image/png;base64,iVBORw0KGgo="
	answers := `{
		"gender": "male", "ageCategory": "25-34", "skinType": "oily",
		"frontImage": "` + image + `", "leftImage": "` + image + `", "rightImage": "` + image + `",
		"shavesDaily": true, "razorIrritation": false, "hasFacialHair": false, "usesAftershave": true,
		"waterIntake": "1-2l", "sleepHours": "7-9", "stressLevel": "low", "exerciseFrequency": "daily",
		"diet": "balanced"
	}`
	var view wizardBody
	require.Equal(t, http.StatusOK,
		doJSON(t, client, apiRequest(t, ctx, client, http.MethodPatch, "/api/wizard", strings.NewReader(answers)), &view),
		view.Error)
	for !view.IsFinal {
		require.Equal(t, http.StatusOK,
			doJSON(t, client, apiRequest(t, ctx, client, http.MethodPost, "/api/wizard/next", nil), &view),
			"step %d: %s", view.Step, view.Error)
	}
}

func Test_application_wizardIsReadOnlyWhileSubmitting(t *testing.T) {
	upstream := newHeldUpstream(t)
	server := startTestServer(t, map[string]string{
		"SKINWISE_AI_PROVIDER":     "openai",
		"OPENAI_API_KEY":           "test-key",
		"SKINWISE_OPENAI_BASE_URL": upstream.url,
	})
	client := server.Client()
	ctx := context.Background()
	walkToReview(t, ctx, client)

	submit := apiRequest(t, ctx, client, http.MethodPost, "/api/wizard/submit", nil)
	submitted := make(chan int, 1)
	go func() {
		resp, err := client.Do(submit)
		if err != nil {
			submitted <- 0
			return
		}
		_ = resp.Body.Close()
		submitted <- resp.StatusCode
	}()
	select {
	case <-upstream.started:
	case <-time.After(10 * time.Second):
		t.Fatal("submission never reached the model")
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "patch", method: http.MethodPatch, path: "/api/wizard", body: `{"skinType":"dry"}`},
		{name: "concern", method: http.MethodPost, path: "/api/wizard/concerns", body: `{"tag":"Acne"}`},
		{name: "clear image", method: http.MethodDelete, path: "/api/wizard/images/front"},
		{name: "back", method: http.MethodPost, path: "/api/wizard/back"},
		{name: "reset", method: http.MethodPost, path: "/api/wizard/reset"},
		{name: "second submit", method: http.MethodPost, path: "/api/wizard/submit"},
	}
	for _, tt := range tests {
		var body wizardBody
		status := doJSON(t, client, apiRequest(t, ctx, client, tt.method, tt.path, strings.NewReader(tt.body)), &body)
		require.Equal(t, http.StatusConflict, status, tt.name)
		require.False(t, body.OK, tt.name)
	}

	var view wizardBody
	require.Equal(t, http.StatusOK,
		doJSON(t, client, apiRequest(t, ctx, client, http.MethodGet, "/api/wizard", nil), &view))
	require.True(t, view.Submitting)
	require.True(t, view.IsFinal)
	require.JSONEq(t, `"oily"`, string(view.Answers["skinType"]))

	upstream.release()
	require.Equal(t, http.StatusOK, <-submitted)

	require.Equal(t, http.StatusOK,
		doJSON(t, client, apiRequest(t, ctx, client, http.MethodGet, "/api/wizard", nil), &view))
	require.False(t, view.Submitting)
	require.Equal(t, 1, view.Step)
	require.Equal(t, http.StatusOK,
		doJSON(t, client, apiRequest(t, ctx, client, http.MethodPatch, "/api/wizard", strings.NewReader(`{"skinType":"dry"}`)), &view),
		view.Error)
}
