package transform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{ActionGrammar, `Correct the grammar: "hello world"`},
		{ActionRephrase, `Rephrase this: "hello world"`},
		{ActionExpand, `Expand this paragraph with more detail: "hello world"`},
		{ActionToneProfessional, `Rewrite this in a professional tone: "hello world"`},
		{ActionToneSad, `Rewrite this in a sad tone: "hello world"`},
		{ActionToneFun, `Rewrite this in a fun and playful tone: "hello world"`},
		{"translate", `Perform 'translate' on: hello world`},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := Prompt(tt.action, "hello world"); got != tt.want {
				t.Errorf("Prompt(%q) = %q, want %q", tt.action, got, tt.want)
			}
		})
	}
}

func TestActionsAreKnown(t *testing.T) {
	for _, a := range Actions {
		if !KnownAction(a) {
			t.Errorf("KnownAction(%q) = false", a)
		}
	}
	if KnownAction("translate") {
		t.Error("KnownAction(translate) = true")
	}
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandGenerator_TrimsStdout(t *testing.T) {
	requireCommand(t, "echo")

	g := NewCommandGenerator([]string{"echo", "  result:"}, 5*time.Second)
	out, err := g.Generate(context.Background(), "Rephrase this: \"x\"")
	require.NoError(t, err)
	require.Equal(t, `result: Rephrase this: "x"`, out)
}

func TestCommandGenerator_Timeout(t *testing.T) {
	requireCommand(t, "sleep")

	g := NewCommandGenerator([]string{"sleep"}, 50*time.Millisecond)
	_, err := g.Generate(context.Background(), "5")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestGenerators_NonPositiveTimeoutUsesDefault(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		require.Equal(t, DefaultTimeout, NewCommandGenerator([]string{"echo"}, timeout).Timeout)
		require.Equal(t, DefaultTimeout, NewImg2ImgClient("http://127.0.0.1:1", timeout).client.Timeout)
	}
}

func TestCommandGenerator_Failure(t *testing.T) {
	requireCommand(t, "false")

	_, err := NewCommandGenerator([]string{"false"}, time.Second).Generate(context.Background(), "x")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestCommandGenerator_NotConfigured(t *testing.T) {
	_, err := NewCommandGenerator(nil, time.Second).Generate(context.Background(), "x")
	require.Error(t, err)
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestPrepareImage(t *testing.T) {
	uri, err := PrepareImage(encodePNG(t, 40, 20))
	require.NoError(t, err)

	img := decodeDataURI(t, uri)
	require.Equal(t, image.Rect(0, 0, ImageSize, ImageSize), img.Bounds())

	_, _, _, a := img.At(256, 256).RGBA()
	require.Equal(t, uint32(0xffff), a, "output is flattened to opaque RGB")
}

func TestPrepareImage_Invalid(t *testing.T) {
	_, err := PrepareImage([]byte("not an image"))
	require.Error(t, err)
}

func TestAsDataURI(t *testing.T) {
	require.Equal(t, "data:image/png;base64,QUJD", AsDataURI("QUJD"))
	require.Equal(t, "data:image/jpeg;base64,QUJD", AsDataURI("data:image/jpeg;base64,QUJD"))
}

func TestNewImg2ImgRequest_Defaults(t *testing.T) {
	req := NewImg2ImgRequest("data:image/png;base64,AAAA", "")
	require.Equal(t, DefaultPrompt, req.Prompt)
	require.Equal(t, 0.6, req.DenoisingStrength)
	require.Equal(t, 512, req.Width)
	require.Equal(t, 512, req.Height)
	require.Equal(t, []string{"data:image/png;base64,AAAA"}, req.InitImages)
}

func TestImg2ImgClient(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sdapi/v1/img2img", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"images": []string{"R0VO", "MORE"}})
	}))
	defer srv.Close()

	c := NewImg2ImgClient(srv.URL+"/sdapi/v1/img2img", time.Second)
	out, err := c.Img2Img(context.Background(), NewImg2ImgRequest("data:image/png;base64,AAAA", "watercolor"))
	require.NoError(t, err)
	require.Equal(t, "R0VO", out)

	require.Equal(t, "watercolor", got["prompt"])
	require.Equal(t, 0.6, got["denoising_strength"])
	require.EqualValues(t, 512, got["width"])
	require.EqualValues(t, 512, got["height"])
	require.Len(t, got["init_images"], 1)
}

func TestImg2ImgClient_NoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail": "model not loaded"}`))
	}))
	defer srv.Close()

	_, err := NewImg2ImgClient(srv.URL, time.Second).Img2Img(context.Background(), NewImg2ImgRequest("x", ""))
	require.ErrorIs(t, err, ErrNoImage)
}

func TestImg2ImgClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := NewImg2ImgClient(srv.URL, 50*time.Millisecond).Img2Img(context.Background(), NewImg2ImgRequest("x", ""))
	require.True(t, errors.Is(err, ErrTimeout), "err = %v", err)
}

func TestImg2ImgClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewImg2ImgClient(srv.URL, time.Second).Img2Img(context.Background(), NewImg2ImgRequest("x", ""))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoImage)
}
