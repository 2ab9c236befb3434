package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoImage is returned when the image service responds without an image.
var ErrNoImage = errors.New("no image returned")

// Img2ImgRequest is the fixed-shape payload of the image service.
type Img2ImgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
}

// NewImg2ImgRequest builds a request for one prepared image.
func NewImg2ImgRequest(initImage, prompt string) Img2ImgRequest {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return Img2ImgRequest{
		InitImages:        []string{initImage},
		Prompt:            prompt,
		DenoisingStrength: DenoisingStrength,
		Width:             ImageSize,
		Height:            ImageSize,
	}
}

type img2ImgResponse struct {
	Images []string `json:"images"`
}

// ImageGenerator re-renders an image from a prompt.
type ImageGenerator interface {
	Img2Img(ctx context.Context, req Img2ImgRequest) (string, error)
}

// Img2ImgClient talks to a local img2img HTTP endpoint.
type Img2ImgClient struct {
	url    string
	client *http.Client
}

// NewImg2ImgClient creates a client for the endpoint at url.
func NewImg2ImgClient(url string, timeout time.Duration) *Img2ImgClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Img2ImgClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Img2Img posts req and returns the first generated image as base64.
func (c *Img2ImgClient) Img2Img(ctx context.Context, req Img2ImgRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		var te interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("calling %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var out img2ImgResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	if len(out.Images) == 0 || out.Images[0] == "" {
		return "", ErrNoImage
	}

	return out.Images[0], nil
}
