package ocr

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	delay time.Duration
	out   RecognizedText
	err   error
}

func (s *stubEngine) Recognize(ctx context.Context, _ image.Image, _ []string) (RecognizedText, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return RecognizedText{}, ctx.Err()
		}
	}
	return s.out, s.err
}

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 2, 2))
}

func TestRecognizeWithDeadlineSuccess(t *testing.T) {
	engine := &stubEngine{out: RecognizedText{Text: "hello", Confidence: 0.9}}

	got, err := RecognizeWithDeadline(context.Background(), engine, testImage(), []string{"eng"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
}

func TestRecognizeWithDeadlineTimeout(t *testing.T) {
	engine := &stubEngine{delay: time.Second}

	_, err := RecognizeWithDeadline(context.Background(), engine, testImage(), nil, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrDeadlineExceeded)
}

func TestRecognizeWithDeadlineZeroMeansNoLimit(t *testing.T) {
	engine := &stubEngine{delay: 20 * time.Millisecond, out: RecognizedText{Text: "slow but fine"}}

	got, err := RecognizeWithDeadline(context.Background(), engine, testImage(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "slow but fine", got.Text)
}

func TestRecognizeWithDeadlineEngineFailure(t *testing.T) {
	boom := errors.New("engine broke")
	engine := &stubEngine{err: boom}

	_, err := RecognizeWithDeadline(context.Background(), engine, testImage(), nil, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDeadlineExceeded)
}
