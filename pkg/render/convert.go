package render

import (
	"bytes"
	"context"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// DefaultScale is the PNG upscale factor used when none is given.
const DefaultScale = 2.0

// MaxScale bounds the PNG upscale factor.
const MaxScale = 8.0

const rsvgBin = "rsvg-convert"

// ToPNG rasterizes SVG with rsvg-convert at the given scale (2 doubles the
// pixel dimensions). A scale of zero means DefaultScale.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale == 0 {
		scale = DefaultScale
	}
	if err := ValidateScale(scale); err != nil {
		return nil, err
	}
	return rsvgConvert(ctx, svg, "png", "-z", strconv.FormatFloat(scale, 'f', 2, 64))
}

// ValidateScale checks a PNG scale factor.
func ValidateScale(scale float64) error {
	if math.IsNaN(scale) || scale <= 0 || scale > MaxScale {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be in (0, %g], got %g", MaxScale, scale)
	}
	return nil
}

func rsvgConvert(ctx context.Context, svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if _, err := exec.LookPath(rsvgBin); err != nil {
		return nil, errors.New(errors.ErrCodeRendererUnavailable,
			"%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}

	args := append([]string{"-f", format}, extraArgs...)
	cmd := exec.CommandContext(ctx, rsvgBin, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "rsvg-convert: %s", strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}
