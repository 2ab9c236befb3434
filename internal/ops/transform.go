package ops

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/fetch"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/metrics"
	"github.com/hpungsan/reblock/internal/transform"
)

// TransformInput contains parameters for the Transform operation.
type TransformInput struct {
	Text   string // required
	Label  string // required, echoed back so the caller can route the result
	Action string // required; unknown actions use a generic instruction
}

// TransformOutput contains the generated text for one block.
type TransformOutput struct {
	Result string `json:"result" yaml:"result"`
	Label  string `json:"label" yaml:"label"`
	Action string `json:"action" yaml:"action"`
}

// Transform asks the text generator to rewrite one text block.
// It never touches the store.
func Transform(ctx context.Context, d *Deps, input TransformInput) (*TransformOutput, error) {
	if strings.TrimSpace(input.Text) == "" || strings.TrimSpace(input.Action) == "" || strings.TrimSpace(input.Label) == "" {
		return nil, errors.NewInvalidRequest("Missing parameters")
	}

	prompt := transform.Prompt(input.Action, input.Text)
	log := logger.FromContext(ctx).With(
		logger.String("label", input.Label),
		logger.String("action", input.Action),
		logger.Bool("generic_instruction", !transform.KnownAction(input.Action)),
	)

	start := time.Now()
	result, err := d.Text.Generate(ctx, prompt)
	elapsed := time.Since(start)
	d.Metrics.ObserveGeneration(metrics.KindText, err, elapsed)
	if err != nil {
		log.Error("text generation failed", logger.Error(err))
		if stderrors.Is(err, transform.ErrTimeout) {
			return nil, errors.NewTimeout("text generation", d.cfg().TextGenTimeoutSeconds)
		}
		return nil, errors.NewExternalService("Local LLM", err)
	}
	log.Debug("text generated", logger.Duration("elapsed", elapsed))

	return &TransformOutput{
		Result: result,
		Label:  input.Label,
		Action: input.Action,
	}, nil
}

// Img2ImgInput contains parameters for the Img2Img operation.
type Img2ImgInput struct {
	URL    string // required, source image
	Prompt string // default: transform.DefaultPrompt
}

// Img2ImgOutput contains the re-rendered image as a data URI.
type Img2ImgOutput struct {
	Image string `json:"image" yaml:"image"`
}

// Img2Img downloads an image, normalizes it and asks the image service to
// re-render it. It never touches the store.
func Img2Img(ctx context.Context, d *Deps, input Img2ImgInput) (*Img2ImgOutput, error) {
	srcURL, err := validateURL(input.URL)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	data, err := d.Images.FetchImage(ctx, srcURL)
	if err != nil {
		log.Warn("image fetch failed", logger.String("url", srcURL), logger.Error(err))
		if stderrors.Is(err, fetch.ErrTimeout) {
			return nil, errors.NewTimeout("image fetch", d.cfg().FetchTimeoutSeconds)
		}
		return nil, errors.NewFetchFailed(srcURL, err)
	}

	initImage, err := transform.PrepareImage(data)
	if err != nil {
		return nil, errors.NewInvalidRequest("source is not a supported image: " + err.Error())
	}

	start := time.Now()
	image, err := d.Img2Img.Img2Img(ctx, transform.NewImg2ImgRequest(initImage, input.Prompt))
	d.Metrics.ObserveGeneration(metrics.KindImage, err, time.Since(start))
	if err != nil {
		log.Error("image generation failed", logger.String("url", srcURL), logger.Error(err))
		switch {
		case stderrors.Is(err, transform.ErrTimeout):
			return nil, errors.NewTimeout("image generation", d.cfg().ImageGenTimeoutSeconds)
		case stderrors.Is(err, transform.ErrNoImage):
			e := errors.NewExternalService("image generation", nil)
			e.Message = "No image returned"
			return nil, e
		}
		return nil, errors.NewExternalService("image generation", err)
	}

	return &Img2ImgOutput{Image: transform.AsDataURI(image)}, nil
}
