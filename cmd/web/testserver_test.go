package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/justinas/nosurf"
	"github.com/myrjola/skinwise/internal/e2etest"
	"github.com/myrjola/skinwise/internal/imageinput"
	"github.com/myrjola/skinwise/internal/payload"
	"github.com/myrjola/skinwise/internal/wizard"
	"github.com/stretchr/testify/require"
)

// pngBytes starts with the PNG signature so that content sniffing recognises it.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01") //nolint:gochecknoglobals // fixture.

func testLookupEnv(t *testing.T, overrides map[string]string) func(string) (string, bool) {
	t.Helper()
	env := map[string]string{
		"SKINWISE_ADDR":         "localhost:0",
		"SKINWISE_FQDN":         "localhost",
		"SKINWISE_RP_ORIGIN":    "http://localhost:0",
		"SKINWISE_SQLITE_URL":   ":memory:",
		"SKINWISE_UPLOAD_DIR":   t.TempDir(),
		"SKINWISE_TOKEN_SECRET": "test-secret",
		"SKINWISE_AI_PROVIDER":  "static",
	}
	for k, v := range overrides {
		env[k] = v
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func startTestServer(t *testing.T, overrides map[string]string) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logSink := io.Discard
	if testing.Verbose() {
		logSink = os.Stdout
	}
	server, err := e2etest.StartServer(ctx, logSink, testLookupEnv(t, overrides), run)
	require.NoError(t, err)
	return server
}

// completeAnswers answers every step for a male user.
func completeAnswers() wizard.Answers {
	answers := wizard.NewAnswers()
	answers.Gender = wizard.GenderMale
	answers.AgeCategory = "25-34"
	answers.SkinType = "oily"
	answers.HasAllergies = wizard.Bool(false)
	answers.Concerns = []string{"Acne"}
	answers.ShavesDaily = wizard.Bool(true)
	answers.RazorIrritation = wizard.Bool(false)
	answers.HasFacialHair = wizard.Bool(false)
	answers.UsesAftershave = wizard.Bool(true)
	answers.WaterIntake = "1-2l"
	answers.SleepHours = "7-9"
	answers.StressLevel = "moderate"
	answers.ExerciseFrequency = "3-5-weekly"
	answers.Diet = "balanced"
	return answers
}

func faceImages(n int) []*imageinput.Image {
	images := make([]*imageinput.Image, 0, n)
	for i := range n {
		position := imageinput.Positions[i%len(imageinput.Positions)]
		images = append(images, &imageinput.Image{
			Filename:    position.Filename(),
			ContentType: "image/png",
			Data:        pngBytes,
		})
	}
	return images
}

// analysisRequest builds a multipart analysis request carrying imageCount images.
func analysisRequest(t *testing.T, ctx context.Context, client *e2etest.Client, imageCount int) *http.Request {
	t.Helper()
	p := payload.Assemble(completeAnswers(), faceImages(imageCount), payload.NewMetadata(time.Now()))
	body, contentType, err := p.Encode()
	require.NoError(t, err)
	req, err := client.NewRequest(ctx, http.MethodPost, "/api/analysis", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return req
}

// doJSON sends req and decodes the JSON response into out. It returns the status code.
func doJSON(t *testing.T, client *e2etest.Client, req *http.Request, out any) int {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp.StatusCode
}

// apiRequest creates a request carrying the CSRF token of the client's session.
func apiRequest(
	t *testing.T,
	ctx context.Context,
	client *e2etest.Client,
	method, urlPath string,
	body io.Reader,
) *http.Request {
	t.Helper()
	token, err := client.CSRFToken(ctx)
	require.NoError(t, err)
	req, err := client.NewRequest(ctx, method, urlPath, body)
	require.NoError(t, err)
	req.Header.Set(nosurf.HeaderName, token)
	req.Header.Set("Content-Type", "application/json")
	return req
}
