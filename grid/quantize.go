package grid

import "termrelay/term"

// The ANSI standard color indexes share the term.Color bit layout
// (1=red, 2=green, 4=blue), so the basic range maps directly.
func standardColor(n int) term.Color {
	return term.Color(n & 0x07)
}

// extendedColor decodes the parameters following SGR 38/48 and returns the
// quantized 4-bit color plus the number of parameters consumed (0 when the
// sequence is malformed).
func extendedColor(params []int) (term.Color, int) {
	if len(params) == 0 {
		return 0, 0
	}
	switch params[0] {
	case 5: // 256-color palette
		if len(params) < 2 {
			return 0, 0
		}
		return palette256(params[1]), 2
	case 2: // 24-bit RGB
		if len(params) < 4 {
			return 0, 0
		}
		return quantizeRGB(params[1], params[2], params[3]), 4
	}
	return 0, 0
}

func palette256(n int) term.Color {
	switch {
	case n < 0 || n > 255:
		return term.LightGray
	case n < 8:
		return term.Color(n)
	case n < 16:
		return term.Color(n-8) | term.Bright
	case n >= 232: // grayscale ramp, levels 8..238
		return quantizeGray(8 + 10*(n-232))
	default: // 6×6×6 color cube
		n -= 16
		return quantizeRGB(cubeLevel(n/36), cubeLevel((n/6)%6), cubeLevel(n%6))
	}
}

func cubeLevel(v int) int {
	if v == 0 {
		return 0
	}
	return 55 + v*40
}

// quantizeRGB folds a true color onto the 16-color palette: near-gray values
// snap to the four grayscale points, everything else thresholds each channel
// and keeps the bright bit for saturated values.
func quantizeRGB(r, g, b int) term.Color {
	maxc, minc := r, r
	for _, v := range []int{g, b} {
		if v > maxc {
			maxc = v
		}
		if v < minc {
			minc = v
		}
	}
	if maxc-minc < 30 {
		return quantizeGray((r + g + b) / 3)
	}

	var c term.Color
	if r >= 128 {
		c |= term.Red
	}
	if g >= 128 {
		c |= term.Green
	}
	if b >= 128 {
		c |= term.Blue
	}
	if c == 0 {
		// All channels below the threshold but not gray: keep the
		// dominant channel so dim colors stay colored.
		switch maxc {
		case r:
			c = term.Red
		case g:
			c = term.Green
		default:
			c = term.Blue
		}
		return c
	}
	if maxc >= 230 {
		c |= term.Bright
	}
	return c
}

func quantizeGray(level int) term.Color {
	switch {
	case level < 48:
		return term.Black
	case level < 144:
		return term.DarkGray
	case level < 224:
		return term.LightGray
	default:
		return term.White
	}
}
